package kinematics

import (
	"errors"
	"fmt"

	"arcmotion/standalone"
)

// Cartesian implements basic Cartesian kinematics (XYZ 1:1 mapping)
type Cartesian struct {
	limits [3]AxisLimits
}

// NewCartesian creates a new Cartesian kinematics instance
func NewCartesian(config *standalone.MachineConfig) (*Cartesian, error) {
	k := &Cartesian{}
	for i, name := range []string{"x", "y", "z"} {
		axis, ok := config.Axes[name]
		if !ok {
			return nil, errors.New(name + " axis not configured")
		}
		k.limits[i] = AxisLimits{Min: axis.MinPosition, Max: axis.MaxPosition}
	}
	return k, nil
}

// CalcPosition converts XYZ coordinates to stepper positions
// For Cartesian, this is a 1:1 mapping
func (k *Cartesian) CalcPosition(pos standalone.Position) ([]float64, error) {
	// Return positions in order: X, Y, Z, E
	return []float64{pos.X, pos.Y, pos.Z, pos.E}, nil
}

// GetAxisNames returns the axis names for Cartesian kinematics
func (k *Cartesian) GetAxisNames() []string {
	return []string{"x", "y", "z", "e"}
}

// CheckLimits validates that a position is within configured limits
func (k *Cartesian) CheckLimits(pos standalone.Position) error {
	values := [3]float64{pos.X, pos.Y, pos.Z}
	for i, name := range [3]string{"X", "Y", "Z"} {
		if !k.limits[i].Contains(values[i]) {
			return fmt.Errorf("%s %.3f: %w [%.3f, %.3f]", name, values[i], ErrOutOfLimits,
				k.limits[i].Min, k.limits[i].Max)
		}
	}
	return nil
}

// Clamp restricts X/Y/Z to the axis limits; E is left alone
func (k *Cartesian) Clamp(pos standalone.Position) standalone.Position {
	pos.X = k.limits[0].Clamp(pos.X)
	pos.Y = k.limits[1].Clamp(pos.Y)
	pos.Z = k.limits[2].Clamp(pos.Z)
	return pos
}
