package kinematics

import (
	"errors"
	"fmt"

	"arcmotion/standalone"
	"arcmotion/standalone/arc"
)

// ErrOutOfLimits is returned for positions outside the configured travel
var ErrOutOfLimits = errors.New("position out of limits")

// Kinematics defines the interface for coordinate transformations
type Kinematics interface {
	// CalcPosition converts XYZ coordinates to stepper positions
	CalcPosition(pos standalone.Position) ([]float64, error)

	// GetAxisNames returns the names of axes controlled by this kinematics
	GetAxisNames() []string

	// CheckLimits validates that a position is within configured limits
	CheckLimits(pos standalone.Position) error

	// Clamp restricts a position to the configured limits (software endstops)
	Clamp(pos standalone.Position) standalone.Position
}

// AxisLimits represents position limits for an axis
type AxisLimits struct {
	Min float64
	Max float64
}

// Contains reports whether v is within the limits
func (l AxisLimits) Contains(v float64) bool {
	return v >= l.Min && v <= l.Max
}

// Clamp restricts v to the limits
func (l AxisLimits) Clamp(v float64) float64 {
	if v < l.Min {
		return l.Min
	}
	if v > l.Max {
		return l.Max
	}
	return v
}

// ArcClamp exposes the kinematics' software endstops to the arc segmenter
func ArcClamp(k Kinematics) arc.Clamp {
	return arc.ClampFunc(func(v arc.AxisVector) arc.AxisVector {
		return k.Clamp(standalone.PositionFromVector(v)).Vector()
	})
}

// New creates the kinematics named in the config
func New(config *standalone.MachineConfig) (Kinematics, error) {
	switch config.Kinematics {
	case "cartesian", "":
		return NewCartesian(config)
	default:
		return nil, fmt.Errorf("unsupported kinematics: %s", config.Kinematics)
	}
}
