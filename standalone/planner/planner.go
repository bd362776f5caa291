package planner

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"arcmotion/standalone"
	"arcmotion/standalone/kinematics"
)

// minMoveDistance is the shortest XYZ/E travel worth queueing (mm)
const minMoveDistance = 1e-6

// Executor consumes planned moves in order (printer link, file writer, recorder)
type Executor interface {
	Execute(ctx context.Context, move *standalone.Move) error
}

// Planner handles motion planning and hands moves to an Executor
type Planner struct {
	config     *standalone.MachineConfig
	kinematics kinematics.Kinematics
	executor   Executor

	// Current state
	currentPos standalone.Position
	moveQueue  []*standalone.Move
}

// NewPlanner creates a new motion planner
func NewPlanner(config *standalone.MachineConfig, kin kinematics.Kinematics, exec Executor) *Planner {
	return &Planner{
		config:     config,
		kinematics: kin,
		executor:   exec,
		moveQueue:  make([]*standalone.Move, 0, 32),
	}
}

// QueueMove adds a move to the queue
func (p *Planner) QueueMove(move *standalone.Move) error {
	// Check limits
	if err := p.kinematics.CheckLimits(move.End); err != nil {
		return err
	}

	if move.Distance == 0 {
		move.Distance = moveDistance(move.Start, move.End)
	}
	if move.Distance < minMoveDistance {
		// Nothing to plan, but the position still advances (E-only tweaks)
		p.currentPos = move.End
		return nil
	}
	if move.Accel <= 0 {
		move.Accel = p.config.DefaultAccel
	}
	if move.Velocity <= 0 {
		move.Velocity = p.config.DefaultVelocity
	}

	p.calculateTrapezoid(move)

	p.moveQueue = append(p.moveQueue, move)
	p.currentPos = move.End
	return nil
}

// moveDistance is the XYZ length, or |E| for extrude-only moves
func moveDistance(start, end standalone.Position) float64 {
	d := math.Sqrt(sq(end.X-start.X) + sq(end.Y-start.Y) + sq(end.Z-start.Z))
	if d < minMoveDistance {
		return math.Abs(end.E - start.E)
	}
	return d
}

// calculateTrapezoid calculates the trapezoidal velocity profile for a move
func (p *Planner) calculateTrapezoid(move *standalone.Move) {
	// Limit velocity to axis maximums
	maxVel := move.Velocity
	deltas := [4]float64{
		math.Abs(move.End.X - move.Start.X),
		math.Abs(move.End.Y - move.Start.Y),
		math.Abs(move.End.Z - move.Start.Z),
		math.Abs(move.End.E - move.Start.E),
	}
	for i, name := range p.kinematics.GetAxisNames() {
		if i >= len(deltas) || deltas[i] == 0 {
			continue
		}
		axisConfig, ok := p.config.Axes[name]
		if !ok || axisConfig.MaxVelocity <= 0 {
			continue
		}
		axisVel := maxVel * deltas[i] / move.Distance
		if axisVel > axisConfig.MaxVelocity {
			maxVel = axisConfig.MaxVelocity * move.Distance / deltas[i]
		}
	}

	move.Velocity = maxVel
	move.StartVel = 0
	move.EndVel = 0

	// No lookahead: every move starts and ends at rest
	accelDist := (maxVel * maxVel) / (2.0 * move.Accel)

	if accelDist*2.0 >= move.Distance {
		// Triangle profile (can't reach full speed)
		accelDist = move.Distance / 2.0
		move.CruiseVel = math.Sqrt(2.0 * move.Accel * accelDist)

		accelTime := move.CruiseVel / move.Accel
		move.AccelTime = seconds(accelTime)
		move.CruiseTime = 0
		move.DecelTime = move.AccelTime
	} else {
		// Trapezoidal profile
		cruiseDist := move.Distance - 2.0*accelDist
		move.CruiseVel = maxVel

		accelTime := maxVel / move.Accel
		move.AccelTime = seconds(accelTime)
		move.CruiseTime = seconds(cruiseDist / maxVel)
		move.DecelTime = move.AccelTime
	}
	move.Duration = move.AccelTime + move.CruiseTime + move.DecelTime
}

// Flush hands every queued move to the executor in order
func (p *Planner) Flush(ctx context.Context) error {
	for len(p.moveQueue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		move := p.moveQueue[0]
		if p.executor != nil {
			if err := p.executor.Execute(ctx, move); err != nil {
				return fmt.Errorf("execute move to %s: %w", formatPosition(move.End), err)
			}
		}
		p.moveQueue[0] = nil
		p.moveQueue = p.moveQueue[1:]
	}
	return nil
}

// GetCurrentPosition returns the planned position (end of the last queued move)
func (p *Planner) GetCurrentPosition() standalone.Position {
	return p.currentPos
}

// SetPosition sets the current position without moving
func (p *Planner) SetPosition(pos standalone.Position) {
	p.currentPos = pos
}

// ClearQueue drops all pending moves
func (p *Planner) ClearQueue() {
	p.moveQueue = make([]*standalone.Move, 0, 32)
}

// Pending returns the number of queued moves
func (p *Planner) Pending() int {
	return len(p.moveQueue)
}

// IsIdle returns true if no moves are queued
func (p *Planner) IsIdle() bool {
	return len(p.moveQueue) == 0
}

// Helper functions

func sq(x float64) float64 {
	return x * x
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func formatPosition(pos standalone.Position) string {
	var b strings.Builder
	fmt.Fprintf(&b, "X%.3f Y%.3f Z%.3f E%.4f", pos.X, pos.Y, pos.Z, pos.E)
	return b.String()
}
