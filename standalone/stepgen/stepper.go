package stepgen

import (
	"context"
	"fmt"
	"math"

	"arcmotion/standalone"
	"arcmotion/standalone/kinematics"
	"arcmotion/standalone/planner"
)

// Stepper tracks a single axis in whole motor steps
type Stepper struct {
	name   string
	config standalone.AxisConfig

	position  int64  // Current position in steps
	steps     uint64 // Total steps issued
	reversals int    // Direction changes
	lastDir   int    // -1, 0 or 1
}

// NewStepper creates a step tracker for one axis
func NewStepper(name string, config standalone.AxisConfig) (*Stepper, error) {
	if !(config.StepsPerMM > 0) {
		return nil, fmt.Errorf("axis %s: steps_per_mm must be > 0", name)
	}
	return &Stepper{name: name, config: config}, nil
}

// toSteps rounds to the nearest step so repeated conversions never drift
func (s *Stepper) toSteps(mm float64) int64 {
	return int64(math.Round(mm * s.config.StepsPerMM))
}

// MoveTo moves to targetMM and returns the signed step count issued
func (s *Stepper) MoveTo(targetMM float64) int64 {
	target := s.toSteps(targetMM)
	delta := target - s.position
	if delta == 0 {
		return 0
	}

	dir := 1
	if delta < 0 {
		dir = -1
	}
	if s.lastDir != 0 && dir != s.lastDir {
		s.reversals++
	}
	s.lastDir = dir

	if delta < 0 {
		s.steps += uint64(-delta)
	} else {
		s.steps += uint64(delta)
	}
	s.position = target
	return delta
}

// GetPosition returns the current position in millimeters
func (s *Stepper) GetPosition() float64 {
	return float64(s.position) / s.config.StepsPerMM
}

// SetPosition sets the current position without stepping (G92, homing)
func (s *Stepper) SetPosition(posMM float64) {
	s.position = s.toSteps(posMM)
}

// Steps returns the total steps issued
func (s *Stepper) Steps() uint64 {
	return s.steps
}

// Reversals returns how many times the axis changed direction
func (s *Stepper) Reversals() int {
	return s.reversals
}

// Name returns the axis name
func (s *Stepper) Name() string {
	return s.name
}

// Block is one move quantized to steps, in kinematic axis order
type Block struct {
	Steps    []int64
	Duration float64 // Seconds, from the planner's profile
}

// Rate returns the peak step rate (steps/s) over all axes
func (b Block) Rate() float64 {
	if b.Duration <= 0 {
		return 0
	}
	var peak int64
	for _, n := range b.Steps {
		if n < 0 {
			n = -n
		}
		if n > peak {
			peak = n
		}
	}
	return float64(peak) / b.Duration
}

// Empty reports whether no axis stepped
func (b Block) Empty() bool {
	for _, n := range b.Steps {
		if n != 0 {
			return false
		}
	}
	return true
}

// Generator quantizes planned moves into step blocks; it implements planner.Executor
type Generator struct {
	kinematics kinematics.Kinematics
	steppers   []*Stepper // Indexed like GetAxisNames; nil when unconfigured
	next       planner.Executor

	blocks   int
	empty    int // Moves that produced no steps on any axis
	peakRate float64
}

// NewGenerator creates a stepper for every kinematic axis present in config
// and forwards moves to next
func NewGenerator(config *standalone.MachineConfig, kin kinematics.Kinematics, next planner.Executor) (*Generator, error) {
	names := kin.GetAxisNames()
	g := &Generator{
		kinematics: kin,
		steppers:   make([]*Stepper, len(names)),
		next:       next,
	}
	for i, name := range names {
		axis, ok := config.Axes[name]
		if !ok {
			continue
		}
		s, err := NewStepper(name, axis)
		if err != nil {
			return nil, err
		}
		g.steppers[i] = s
	}
	return g, nil
}

// Execute quantizes move and forwards it
func (g *Generator) Execute(ctx context.Context, move *standalone.Move) error {
	block, err := g.Quantize(move)
	if err != nil {
		return err
	}
	g.blocks++
	if block.Empty() {
		g.empty++
	}
	g.peakRate = math.Max(g.peakRate, block.Rate())

	if g.next != nil {
		return g.next.Execute(ctx, move)
	}
	return nil
}

// Quantize maps move through the kinematics and converts it into whole
// steps per axis. Steppers resync to the move's start first, so position
// resets that bypass the executor are picked up.
func (g *Generator) Quantize(move *standalone.Move) (Block, error) {
	start, err := g.kinematics.CalcPosition(move.Start)
	if err != nil {
		return Block{}, fmt.Errorf("stepgen: start position: %w", err)
	}
	end, err := g.kinematics.CalcPosition(move.End)
	if err != nil {
		return Block{}, fmt.Errorf("stepgen: end position: %w", err)
	}

	block := Block{
		Steps:    make([]int64, len(g.steppers)),
		Duration: move.Duration.Seconds(),
	}
	for i, s := range g.steppers {
		if s == nil || i >= len(start) || i >= len(end) {
			continue
		}
		if s.position != s.toSteps(start[i]) {
			s.SetPosition(start[i])
		}
		block.Steps[i] = s.MoveTo(end[i])
	}
	return block, nil
}

// Stepper returns the tracker for the named axis, or nil if unconfigured
func (g *Generator) Stepper(name string) *Stepper {
	for _, s := range g.steppers {
		if s != nil && s.name == name {
			return s
		}
	}
	return nil
}

// Summary reports totals since creation
func (g *Generator) Summary() string {
	out := fmt.Sprintf("%d blocks (%d without steps), peak %.0f steps/s", g.blocks, g.empty, g.peakRate)
	for _, s := range g.steppers {
		if s != nil {
			out += fmt.Sprintf("; %s: %d steps, %d reversals", s.name, s.steps, s.reversals)
		}
	}
	return out
}
