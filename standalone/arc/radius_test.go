package arc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCenterFromRadius(t *testing.T) {
	start := AxisVector{10, 0, 0, 0}
	end := AxisVector{0, 10, 0, 0}

	tests := []struct {
		name   string
		radius float64
		dir    Direction
		want   [2]float64
	}{
		{"ccw minor arc", 10, CounterClockwise, [2]float64{-10, 0}},
		{"cw minor arc", 10, Clockwise, [2]float64{0, 10}},
		{"ccw major arc", -10, CounterClockwise, [2]float64{0, 10}},
		{"cw major arc", -10, Clockwise, [2]float64{-10, 0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CenterFromRadius(start, end, PlaneXY, tc.radius, tc.dir)
			require.NoError(t, err)
			assert.InDelta(t, tc.want[0], got[0], 1e-9)
			assert.InDelta(t, tc.want[1], got[1], 1e-9)
		})
	}
}

func TestCenterFromRadiusMatchesOffsetForm(t *testing.T) {
	s := mustSegmenter(t, 1.0, DefaultCorrectionInterval)
	start := AxisVector{10, 0, 0, 0}
	end := AxisVector{0, 10, 0, 0}

	offset, err := CenterFromRadius(start, end, PlaneXY, 10, CounterClockwise)
	require.NoError(t, err)

	fromR := s.Plan(NewRequest(start, end, offset, PlaneXY, CounterClockwise, 10, 0))
	fromIJ := s.Plan(quarterCircle())
	assert.InDelta(t, fromIJ.AngularTravel, fromR.AngularTravel, 1e-9)
	assert.Equal(t, fromIJ.Segments, fromR.Segments)
}

func TestCenterFromRadiusHalfCircle(t *testing.T) {
	// Radius slightly below half the chord is accepted as a half circle
	got, err := CenterFromRadius(AxisVector{0, 0, 0, 0}, AxisVector{20, 0, 0, 0}, PlaneXY, 9.9995, CounterClockwise)
	require.NoError(t, err)
	assert.InDelta(t, 10, got[0], 1e-9)
	assert.InDelta(t, 0, got[1], 1e-9)
}

func TestCenterFromRadiusErrors(t *testing.T) {
	start := AxisVector{10, 0, 0, 0}

	_, err := CenterFromRadius(start, start, PlaneXY, 10, Clockwise)
	assert.ErrorIs(t, err, ErrRadiusEndpoint)

	_, err = CenterFromRadius(start, AxisVector{0, 10, 0, 0}, PlaneXY, 1, Clockwise)
	assert.ErrorIs(t, err, ErrRadiusTooSmall)
}

func TestRequestValidate(t *testing.T) {
	assert.NoError(t, quarterCircle().Validate())

	req := quarterCircle()
	req.Linear = AxisX
	assert.ErrorIs(t, req.Validate(), ErrInvalidAxes)

	req = quarterCircle()
	req.AxisB = AxisE
	assert.ErrorIs(t, req.Validate(), ErrInvalidAxes)

	req = quarterCircle()
	req.Target[AxisZ] = math.NaN()
	assert.ErrorIs(t, req.Validate(), ErrNonFinite)

	req = quarterCircle()
	req.Radius = 0
	assert.ErrorIs(t, req.Validate(), ErrZeroRadius)
}
