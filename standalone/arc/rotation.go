package arc

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Rotation is a per-segment rotation matrix stored as its cosine and sine terms
type Rotation struct {
	Cos float64
	Sin float64
}

// SmallAngle returns the first-order rotation for theta:
// cos ≈ 1 - θ²/2, sin ≈ θ
func SmallAngle(theta float64) Rotation {
	return Rotation{
		Cos: 1 - 0.5*theta*theta,
		Sin: theta,
	}
}

// Apply rotates r by the rotation without calling any trig function
func (rot Rotation) Apply(r r2.Vec) r2.Vec {
	return r2.Vec{
		X: r.X*rot.Cos - r.Y*rot.Sin,
		Y: r.X*rot.Sin + r.Y*rot.Cos,
	}
}

// ExactRadius returns the radius vector at angle, rotated from the initial
// vector -offset using true cos/sin
func ExactRadius(offset [2]float64, angle float64) r2.Vec {
	cosTi := math.Cos(angle)
	sinTi := math.Sin(angle)
	return r2.Vec{
		X: -offset[0]*cosTi + offset[1]*sinTi,
		Y: -offset[0]*sinTi - offset[1]*cosTi,
	}
}

// RotationState tracks the radius vector during segmentation
type RotationState struct {
	R     r2.Vec // Center to current point
	Count int    // Approximate rotations since the last exact fix
}

// NewRotationState starts at the arc's initial radius vector
func NewRotationState(offset [2]float64) RotationState {
	return RotationState{R: r2.Vec{X: -offset[0], Y: -offset[1]}}
}

// Advance moves the radius vector to segment i. It applies rot while fewer
// than interval approximate steps have run, otherwise it recomputes the
// vector exactly at i*theta and resets the count.
func (s *RotationState) Advance(i int, theta float64, rot Rotation, offset [2]float64, interval int) {
	if s.Count < interval {
		s.R = rot.Apply(s.R)
		s.Count++
		return
	}
	s.R = ExactRadius(offset, float64(i)*theta)
	s.Count = 0
}
