package arc

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrRadiusEndpoint = errors.New("arc: R form requires an endpoint different from the start")
	ErrRadiusTooSmall = errors.New("arc: radius too small for the endpoint distance")
	ErrInvalidAxes    = errors.New("arc: plane and linear axes must be distinct XYZ axes")
	ErrNonFinite      = errors.New("arc: non-finite coordinate")
	ErrZeroRadius     = errors.New("arc: zero radius")
)

// CenterFromRadius returns the center offset (relative to current) for an R-form
// arc. A negative radius selects the arc longer than a half circle.
func CenterFromRadius(current, target AxisVector, plane Plane, radius float64, dir Direction) ([2]float64, error) {
	a, b, _ := plane.Axes()
	p1, q1 := current[a], current[b]
	p2, q2 := target[a], target[b]

	if p1 == p2 && q1 == q2 {
		return [2]float64{}, ErrRadiusEndpoint
	}

	dx := p2 - p1
	dy := q2 - q1
	d := math.Hypot(dx, dy)
	half := d * 0.5
	r := math.Abs(radius)

	var h float64
	switch delta := half - r; {
	case delta > MinPathLength:
		return [2]float64{}, fmt.Errorf("%w: radius %.4f, half chord %.4f", ErrRadiusTooSmall, r, half)
	case delta > 0:
		// Within rounding of a half circle
		h = 0
	default:
		h = math.Sqrt(r*r - half*half)
	}

	// Center lies on the chord bisector; side depends on direction and sign of R
	e := 1.0
	if (dir == Clockwise) != (radius < 0) {
		e = -1.0
	}
	mx := (p1 + p2) * 0.5
	my := (q1 + q2) * 0.5
	sx := -dy / d
	sy := dx / d

	return [2]float64{
		mx + e*h*sx - p1,
		my + e*h*sy - q1,
	}, nil
}

// Validate checks a request before segmentation. Segment does not call it;
// the G-code layer does.
func (req Request) Validate() error {
	axes := [3]int{req.AxisA, req.AxisB, req.Linear}
	for i, ax := range axes {
		if ax < AxisX || ax > AxisZ {
			return fmt.Errorf("%w: axis %d", ErrInvalidAxes, ax)
		}
		for _, other := range axes[i+1:] {
			if ax == other {
				return fmt.Errorf("%w: axis %d repeated", ErrInvalidAxes, ax)
			}
		}
	}

	values := make([]float64, 0, 2*NumAxes+4)
	values = append(values, req.Current[:]...)
	values = append(values, req.Target[:]...)
	values = append(values, req.Offset[0], req.Offset[1], req.FeedRate, req.Radius)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFinite
		}
	}

	if req.Radius == 0 {
		return ErrZeroRadius
	}
	return nil
}
