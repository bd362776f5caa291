package gcode

import (
	"errors"
	"fmt"
	"math"

	"arcmotion/standalone"
	"arcmotion/standalone/arc"
)

var (
	// ErrArcParams is returned for G2/G3 without I/J/K offsets or R
	ErrArcParams = errors.New("G2/G3 requires IJ, IK, JK or R parameters")
)

// Interpreter executes G-code commands
type Interpreter struct {
	state     *standalone.MachineState
	config    *standalone.MachineConfig
	planner   Planner // Interface to motion planner
	segmenter *arc.Segmenter
	clamp     arc.Clamp
	observer  ArcObserver
	respond   func(string)
}

// Planner interface for motion planning
type Planner interface {
	QueueMove(move *standalone.Move) error
	GetCurrentPosition() standalone.Position
	SetPosition(pos standalone.Position)
	ClearQueue()
}

// ArcObserver is called with every arc request and its geometry before segmentation
type ArcObserver func(req arc.Request, geom arc.Geometry)

// NewInterpreter creates a new G-code interpreter
func NewInterpreter(config *standalone.MachineConfig, planner Planner) (*Interpreter, error) {
	segmenter, err := arc.NewSegmenter(config.Arc.MMPerArcSegment, config.Arc.NArcCorrection)
	if err != nil {
		return nil, err
	}

	return &Interpreter{
		state: &standalone.MachineState{
			Position:     planner.GetCurrentPosition(),
			Homed:        [4]bool{false, false, false, false},
			AbsoluteMode: true,
			FeedRate:     config.DefaultVelocity,
			ExtrudeMode:  false, // Absolute extrusion by default
			Plane:        arc.PlaneXY,
			TargetTemp:   make(map[string]float64),
		},
		config:    config,
		planner:   planner,
		segmenter: segmenter,
		clamp:     arc.NoClamp,
		respond:   func(string) {},
	}, nil
}

// SetClamp sets the clamp applied to intermediate arc segments
func (interp *Interpreter) SetClamp(clamp arc.Clamp) {
	if clamp == nil {
		clamp = arc.NoClamp
	}
	interp.clamp = clamp
}

// SetArcObserver registers a callback for planned arcs
func (interp *Interpreter) SetArcObserver(observer ArcObserver) {
	interp.observer = observer
}

// SetResponder sets where report commands (M114) write their output
func (interp *Interpreter) SetResponder(respond func(string)) {
	if respond == nil {
		respond = func(string) {}
	}
	interp.respond = respond
}

// Execute executes a parsed G-code command
func (interp *Interpreter) Execute(cmd *standalone.GCodeCommand) error {
	if cmd == nil {
		return nil
	}

	switch cmd.Type {
	case 'G':
		return interp.executeG(cmd)
	case 'M':
		return interp.executeM(cmd)
	case 'T':
		return interp.executeT(cmd)
	}

	return nil
}

// executeG handles G-codes
func (interp *Interpreter) executeG(cmd *standalone.GCodeCommand) error {
	switch cmd.Number {
	case 0, 1: // G0/G1 - Linear move
		return interp.doMove(cmd)
	case 2: // G2 - Clockwise arc
		return interp.doArc(cmd, arc.Clockwise)
	case 3: // G3 - Counter-clockwise arc
		return interp.doArc(cmd, arc.CounterClockwise)
	case 17:
		interp.state.Plane = arc.PlaneXY
	case 18:
		interp.state.Plane = arc.PlaneXZ
	case 19:
		interp.state.Plane = arc.PlaneYZ
	case 28: // G28 - Home
		return interp.doHome(cmd)
	case 90: // G90 - Absolute positioning
		interp.state.AbsoluteMode = true
	case 91: // G91 - Relative positioning
		interp.state.AbsoluteMode = false
	case 92: // G92 - Set position
		return interp.doSetPosition(cmd)
	}

	return nil
}

// executeM handles M-codes
func (interp *Interpreter) executeM(cmd *standalone.GCodeCommand) error {
	switch cmd.Number {
	case 82: // M82 - Absolute extrusion
		interp.state.ExtrudeMode = false
	case 83: // M83 - Relative extrusion
		interp.state.ExtrudeMode = true
	case 104, 109: // M104/M109 - Set extruder temperature
		if cmd.HasParameter('S') {
			interp.state.TargetTemp["extruder"] = cmd.GetParameter('S', 0)
		}
	case 140, 190: // M140/M190 - Set bed temperature
		if cmd.HasParameter('S') {
			interp.state.TargetTemp["bed"] = cmd.GetParameter('S', 0)
		}
	case 114: // M114 - Get current position
		pos := interp.planner.GetCurrentPosition()
		interp.respond(fmt.Sprintf("X:%.2f Y:%.2f Z:%.2f E:%.2f\n", pos.X, pos.Y, pos.Z, pos.E))
	}

	return nil
}

// executeT handles tool changes; the tool selects the extruder channel for E moves
func (interp *Interpreter) executeT(cmd *standalone.GCodeCommand) error {
	if cmd.Number < 0 {
		return fmt.Errorf("invalid tool T%d", cmd.Number)
	}
	interp.state.Tool = cmd.Number
	return nil
}

// updateFeedRate applies an F word (mm/min) to the modal feed rate (mm/s)
func (interp *Interpreter) updateFeedRate(cmd *standalone.GCodeCommand) {
	if cmd.HasParameter('F') {
		if f := cmd.GetParameter('F', 0); f > 0 {
			interp.state.FeedRate = f / 60.0
		}
	}
}

// destination resolves X/Y/Z/E words against the current position and modes
func (interp *Interpreter) destination(cmd *standalone.GCodeCommand, current standalone.Position) standalone.Position {
	target := current
	axes := []struct {
		letter byte
		value  *float64
		cur    float64
	}{
		{'X', &target.X, current.X},
		{'Y', &target.Y, current.Y},
		{'Z', &target.Z, current.Z},
	}

	for _, ax := range axes {
		if !cmd.HasParameter(ax.letter) {
			continue
		}
		v := cmd.GetParameter(ax.letter, 0)
		if interp.state.AbsoluteMode {
			*ax.value = v
		} else {
			*ax.value = ax.cur + v
		}
	}

	// Handle extruder
	if cmd.HasParameter('E') {
		if interp.state.ExtrudeMode || !interp.state.AbsoluteMode {
			// Relative extrusion
			target.E = current.E + cmd.GetParameter('E', 0)
		} else {
			// Absolute extrusion
			target.E = cmd.GetParameter('E', current.E)
		}
	}

	return target
}

// doMove executes a linear move (G0/G1)
func (interp *Interpreter) doMove(cmd *standalone.GCodeCommand) error {
	current := interp.planner.GetCurrentPosition()
	interp.updateFeedRate(cmd)
	target := interp.destination(cmd, current)

	// Calculate distance
	dx := target.X - current.X
	dy := target.Y - current.Y
	dz := target.Z - current.Z
	de := target.E - current.E
	distance := math.Sqrt(dx*dx + dy*dy + dz*dz)

	// Skip if no movement
	if distance < 0.001 && math.Abs(de) < 0.001 {
		return nil
	}

	move := &standalone.Move{
		Start:    current,
		End:      target,
		Velocity: interp.state.FeedRate,
		Accel:    interp.config.DefaultAccel,
		Distance: distance,
		Tool:     interp.state.Tool,
	}

	if err := interp.planner.QueueMove(move); err != nil {
		return err
	}
	interp.state.Position = target
	return nil
}

// planarOffset returns the center offset words for the active plane
func planarOffset(cmd *standalone.GCodeCommand, plane arc.Plane) (offset [2]float64, given bool) {
	letters := [2]byte{'I', 'J'}
	switch plane {
	case arc.PlaneXZ:
		letters = [2]byte{'I', 'K'}
	case arc.PlaneYZ:
		letters = [2]byte{'J', 'K'}
	}
	for i, l := range letters {
		offset[i] = cmd.GetParameter(l, 0)
	}
	return offset, offset[0] != 0 || offset[1] != 0
}

// doArc executes an arc move (G2/G3) as a series of linear segments
func (interp *Interpreter) doArc(cmd *standalone.GCodeCommand, dir arc.Direction) error {
	current := interp.planner.GetCurrentPosition()
	interp.updateFeedRate(cmd)
	target := interp.destination(cmd, current)
	plane := interp.state.Plane

	offset, hasOffset := planarOffset(cmd, plane)
	if cmd.HasParameter('R') {
		var err error
		offset, err = arc.CenterFromRadius(current.Vector(), target.Vector(), plane, cmd.GetParameter('R', 0), dir)
		if err != nil {
			return err
		}
	} else if !hasOffset {
		return ErrArcParams
	}

	req := arc.NewRequest(current.Vector(), target.Vector(), offset, plane, dir,
		interp.state.FeedRate, interp.state.Tool)
	if err := req.Validate(); err != nil {
		return err
	}

	if interp.observer != nil {
		interp.observer(req, interp.segmenter.Plan(req))
	}

	sink := &plannerSink{
		planner: interp.planner,
		last:    current,
		accel:   interp.config.DefaultAccel,
	}
	interp.segmenter.Segment(req, interp.clamp, sink)
	if sink.err != nil {
		return sink.err
	}

	interp.state.Position = interp.planner.GetCurrentPosition()
	return nil
}

// plannerSink feeds arc segments to the planner as linear moves
type plannerSink struct {
	planner Planner
	last    standalone.Position
	accel   float64
	count   int
	err     error // First planner error
}

func (s *plannerSink) Enqueue(target arc.AxisVector, feedRate float64, channel int) {
	s.count++
	end := standalone.PositionFromVector(target)
	move := &standalone.Move{
		Start:    s.last,
		End:      end,
		Velocity: feedRate,
		Accel:    s.accel,
		Tool:     channel,
	}
	if err := s.planner.QueueMove(move); err != nil && s.err == nil {
		s.err = fmt.Errorf("arc segment %d: %w", s.count, err)
	}
	s.last = end
}

// doHome executes homing (G28)
func (interp *Interpreter) doHome(cmd *standalone.GCodeCommand) error {
	// No endstops on this side of the link: homing just zeroes the named axes
	pos := interp.planner.GetCurrentPosition()
	if !cmd.HasParameter('X') && !cmd.HasParameter('Y') && !cmd.HasParameter('Z') {
		// Home all axes
		interp.state.Homed = [4]bool{true, true, true, false}
		pos.X, pos.Y, pos.Z = 0, 0, 0
	} else {
		if cmd.HasParameter('X') {
			interp.state.Homed[0] = true
			pos.X = 0
		}
		if cmd.HasParameter('Y') {
			interp.state.Homed[1] = true
			pos.Y = 0
		}
		if cmd.HasParameter('Z') {
			interp.state.Homed[2] = true
			pos.Z = 0
		}
	}

	interp.planner.SetPosition(pos)
	interp.state.Position = pos
	return nil
}

// doSetPosition sets the current position (G92)
func (interp *Interpreter) doSetPosition(cmd *standalone.GCodeCommand) error {
	current := interp.planner.GetCurrentPosition()

	if cmd.HasParameter('X') {
		current.X = cmd.GetParameter('X', 0)
	}
	if cmd.HasParameter('Y') {
		current.Y = cmd.GetParameter('Y', 0)
	}
	if cmd.HasParameter('Z') {
		current.Z = cmd.GetParameter('Z', 0)
	}
	if cmd.HasParameter('E') {
		current.E = cmd.GetParameter('E', 0)
	}

	interp.planner.SetPosition(current)
	interp.state.Position = current
	return nil
}

// GetState returns the current machine state
func (interp *Interpreter) GetState() *standalone.MachineState {
	return interp.state
}
