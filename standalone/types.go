package standalone

import (
	"time"

	"arcmotion/standalone/arc"
)

// Position represents a position in machine coordinates
type Position struct {
	X float64
	Y float64
	Z float64
	E float64 // Extruder
}

// Vector returns the position in arc axis order
func (p Position) Vector() arc.AxisVector {
	return arc.AxisVector{p.X, p.Y, p.Z, p.E}
}

// PositionFromVector converts an arc axis vector back to a Position
func PositionFromVector(v arc.AxisVector) Position {
	return Position{X: v[arc.AxisX], Y: v[arc.AxisY], Z: v[arc.AxisZ], E: v[arc.AxisE]}
}

// Move represents a planned move with timing information
type Move struct {
	Start    Position
	End      Position
	Velocity float64 // Max velocity (mm/s)
	Accel    float64 // Acceleration (mm/s^2)
	Distance float64 // Total distance (mm)
	Tool     int     // Extruder the E axis drives

	// Trapezoidal profile
	AccelTime  time.Duration
	CruiseTime time.Duration
	DecelTime  time.Duration
	Duration   time.Duration
	CruiseVel  float64 // Actual cruise velocity reached
	StartVel   float64
	EndVel     float64
}

// AxisConfig represents configuration for a single axis
type AxisConfig struct {
	StepsPerMM  float64 `json:"steps_per_mm"`
	MaxVelocity float64 `json:"max_velocity"` // mm/s
	MaxAccel    float64 `json:"max_accel"`    // mm/s^2
	HomingVel   float64 `json:"homing_velocity"`
	MinPosition float64 `json:"min_position"` // Software endstop (mm)
	MaxPosition float64 `json:"max_position"` // Software endstop (mm)
}

// ArcConfig tunes G2/G3 segmentation
type ArcConfig struct {
	MMPerArcSegment float64 `json:"mm_per_arc_segment"` // Chord length (mm)
	NArcCorrection  int     `json:"n_arc_correction"`   // Approximate steps between exact fixes
}

// MachineConfig represents the complete machine configuration
type MachineConfig struct {
	Kinematics string                `json:"kinematics"` // "cartesian"
	Axes       map[string]AxisConfig `json:"axes"`       // "x", "y", "z", "e"
	Arc        ArcConfig             `json:"arc"`

	// Software endstops clamp arc segments to the axis limits
	SoftEndstops bool `json:"soft_endstops"`

	// Global motion parameters
	DefaultVelocity float64 `json:"default_velocity"` // mm/s
	DefaultAccel    float64 `json:"default_accel"`    // mm/s^2
}

// MachineState represents the current machine state
type MachineState struct {
	Position     Position           // Current position
	Homed        [4]bool            // Homing status [X, Y, Z, E]
	AbsoluteMode bool               // Absolute (G90) vs relative (G91) positioning
	FeedRate     float64            // Current feedrate (mm/s)
	ExtrudeMode  bool               // Relative extrusion (M83) when true
	Plane        arc.Plane          // Arc plane (G17/G18/G19)
	Tool         int                // Active extruder (T<n>)
	TargetTemp   map[string]float64 // Target temperatures
}

// GCodeCommand represents a parsed G-code command
type GCodeCommand struct {
	Type       byte             // 'G', 'M', 'T'
	Number     int              // Command number (e.g., 0 for G0, 28 for G28)
	Parameters map[byte]float64 // Parameters (X, Y, Z, E, F, S, etc.)
	Comment    string           // Comment text
	LineNumber int              // N word, -1 when absent
}

// HasParameter checks if a parameter exists in the command
func (cmd *GCodeCommand) HasParameter(param byte) bool {
	_, ok := cmd.Parameters[param]
	return ok
}

// GetParameter gets a parameter value, or returns the default if not present
func (cmd *GCodeCommand) GetParameter(param byte, defaultValue float64) float64 {
	if val, ok := cmd.Parameters[param]; ok {
		return val
	}
	return defaultValue
}
