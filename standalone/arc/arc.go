// Package arc converts G2/G3 arc moves into short linear segments.
//
// The segmenter rotates the radius vector with a small-angle approximation
// and periodically recomputes it exactly to bound the accumulated drift.
package arc

import (
	"math"
)

// NumAxes is the number of controlled axes in an AxisVector
const NumAxes = 4

// Axis indices
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
	AxisE = 3 // Extruder
)

// MinPathLength is the helical path length below which an arc is a no-op (mm)
const MinPathLength = 0.001

// AxisVector holds one coordinate per controlled axis
type AxisVector [NumAxes]float64

// Plane selects the two axes the circular part of an arc is computed in
type Plane int

const (
	PlaneXY Plane = iota // G17
	PlaneXZ              // G18
	PlaneYZ              // G19
)

// Axes returns the plane axes and the linear (helical) axis
func (p Plane) Axes() (axisA, axisB, linear int) {
	switch p {
	case PlaneXZ:
		return AxisX, AxisZ, AxisY
	case PlaneYZ:
		return AxisY, AxisZ, AxisX
	default:
		return AxisX, AxisY, AxisZ
	}
}

func (p Plane) String() string {
	switch p {
	case PlaneXY:
		return "XY"
	case PlaneXZ:
		return "XZ"
	case PlaneYZ:
		return "YZ"
	default:
		return "unknown"
	}
}

// Direction of travel around the arc center
type Direction int

const (
	CounterClockwise Direction = iota // G3
	Clockwise                         // G2
)

// Request describes one arc move
type Request struct {
	Current AxisVector // Position at the start of the arc
	Target  AxisVector // Exact end position

	// Offset is the center relative to Current, in (AxisA, AxisB) order
	Offset [2]float64

	AxisA  int // First plane axis
	AxisB  int // Second plane axis
	Linear int // Out-of-plane axis, interpolated linearly

	FeedRate  float64 // mm/s, passed through to the sink
	Radius    float64 // Nominal radius used for the path length
	Direction Direction
	Channel   int // Extruder/tool the E axis maps to
}

// NewRequest builds a request for the given plane, taking the radius from the offset
func NewRequest(current, target AxisVector, offset [2]float64, plane Plane,
	dir Direction, feedRate float64, channel int) Request {

	a, b, linear := plane.Axes()
	return Request{
		Current:   current,
		Target:    target,
		Offset:    offset,
		AxisA:     a,
		AxisB:     b,
		Linear:    linear,
		FeedRate:  feedRate,
		Radius:    math.Hypot(offset[0], offset[1]),
		Direction: dir,
		Channel:   channel,
	}
}

// Clamp restricts an intermediate point to the machine's travel limits
type Clamp interface {
	Clamp(pos AxisVector) AxisVector
}

// ClampFunc adapts a function to the Clamp interface
type ClampFunc func(pos AxisVector) AxisVector

func (f ClampFunc) Clamp(pos AxisVector) AxisVector {
	return f(pos)
}

// NoClamp leaves positions untouched
var NoClamp Clamp = ClampFunc(func(pos AxisVector) AxisVector { return pos })

// Sink receives the generated line segments in path order
type Sink interface {
	Enqueue(target AxisVector, feedRate float64, channel int)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(target AxisVector, feedRate float64, channel int)

func (f SinkFunc) Enqueue(target AxisVector, feedRate float64, channel int) {
	f(target, feedRate, channel)
}
