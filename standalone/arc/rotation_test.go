package arc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestSmallAngle(t *testing.T) {
	rot := SmallAngle(0.1)
	assert.InDelta(t, 0.995, rot.Cos, 1e-15)
	assert.Equal(t, 0.1, rot.Sin)

	// A zero rotation is the identity
	v := r2.Vec{X: 3, Y: -4}
	assert.Equal(t, v, SmallAngle(0).Apply(v))
}

func TestSmallAngleTracksExactRotation(t *testing.T) {
	for _, theta := range []float64{0.001, 0.01, 0.05, -0.05} {
		v := SmallAngle(theta).Apply(r2.Vec{X: 1, Y: 0})
		assert.InDelta(t, math.Cos(theta), v.X, theta*theta*theta*theta, "theta %v", theta)
		assert.InDelta(t, math.Sin(theta), v.Y, math.Abs(theta*theta*theta), "theta %v", theta)
	}
}

func TestExactRadius(t *testing.T) {
	offset := [2]float64{-10, 0}

	r := ExactRadius(offset, 0)
	assert.InDelta(t, 10, r.X, 1e-12)
	assert.InDelta(t, 0, r.Y, 1e-12)

	r = ExactRadius(offset, math.Pi/2)
	assert.InDelta(t, 0, r.X, 1e-12)
	assert.InDelta(t, 10, r.Y, 1e-12)

	r = ExactRadius([2]float64{3, 4}, 1.234)
	assert.InDelta(t, 5, r2.Norm(r), 1e-12)
}

func TestRotationStateCorrectionCycle(t *testing.T) {
	offset := [2]float64{-10, 0}
	theta := 0.1
	rot := SmallAngle(theta)
	const interval = 3

	s := NewRotationState(offset)
	assert.Equal(t, r2.Vec{X: 10, Y: 0}, s.R)

	for i := 1; i <= interval; i++ {
		s.Advance(i, theta, rot, offset, interval)
		assert.Equal(t, i, s.Count, "step %d should be approximate", i)
	}

	s.Advance(interval+1, theta, rot, offset, interval)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, ExactRadius(offset, float64(interval+1)*theta), s.R)

	s.Advance(interval+2, theta, rot, offset, interval)
	assert.Equal(t, 1, s.Count)
}

// maxDrift returns the largest distance between the emitted intermediate
// points of a full circle and the exact points at i*theta.
func maxDrift(t *testing.T, interval int) float64 {
	t.Helper()
	s := mustSegmenter(t, 1.0, interval)
	start := AxisVector{5, 0, 0, 0}
	offset := [2]float64{-5, 0}
	req := NewRequest(start, start, offset, PlaneXY, CounterClockwise, 10, 0)

	g := s.Plan(req)
	require.Equal(t, 31, g.Segments)
	theta := g.AngularTravel / float64(g.Segments)

	sink := &recordingSink{}
	s.Segment(req, nil, sink)
	require.Len(t, sink.moves, g.Segments)

	worst := 0.0
	for i, m := range sink.moves[:g.Segments-1] {
		exact := ExactRadius(offset, float64(i+1)*theta)
		got := r2.Vec{X: m.Target[AxisX] - g.CenterA, Y: m.Target[AxisY] - g.CenterB}
		worst = math.Max(worst, r2.Norm(r2.Sub(got, exact)))
	}
	return worst
}

func TestDriftBoundShrinksWithInterval(t *testing.T) {
	drift1 := maxDrift(t, 1)
	drift5 := maxDrift(t, 5)
	drift25 := maxDrift(t, 25)

	assert.Less(t, drift1, drift5)
	assert.Less(t, drift5, drift25)

	// Every step lands close to the true circle, even with the longest interval
	assert.Less(t, drift1, 0.01)
	assert.Less(t, drift25, 0.5)
}
