package preview

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"arcmotion/standalone"
	"arcmotion/standalone/arc"
)

func quarterCircle() arc.Request {
	return arc.NewRequest(
		arc.AxisVector{110, 100, 0, 0},
		arc.AxisVector{100, 110, 0, 0},
		[2]float64{-10, 0},
		arc.PlaneXY, arc.CounterClockwise, 20, 0)
}

func segmentMoves(t *testing.T, req arc.Request) []standalone.Move {
	t.Helper()
	seg, err := arc.NewSegmenter(arc.DefaultChordTolerance, arc.DefaultCorrectionInterval)
	require.NoError(t, err)

	var moves []standalone.Move
	last := standalone.PositionFromVector(req.Current)
	seg.Segment(req, nil, arc.SinkFunc(func(target arc.AxisVector, feed float64, _ int) {
		end := standalone.PositionFromVector(target)
		moves = append(moves, standalone.Move{Start: last, End: end, Velocity: feed})
		last = end
	}))
	return moves
}

type countingExecutor struct{ n int }

func (c *countingExecutor) Execute(context.Context, *standalone.Move) error {
	c.n++
	return nil
}

func TestRecorderForwards(t *testing.T) {
	next := &countingExecutor{}
	rec := NewRecorder(next)

	move := &standalone.Move{End: standalone.Position{X: 1}}
	require.NoError(t, rec.Execute(context.Background(), move))
	move.End.X = 2

	assert.Equal(t, 1, next.n)
	require.Len(t, rec.Moves, 1)
	assert.Equal(t, 1.0, rec.Moves[0].End.X)

	assert.NoError(t, NewRecorder(nil).Execute(context.Background(), move))
}

func TestPathProjectsPlane(t *testing.T) {
	moves := []standalone.Move{
		{Start: standalone.Position{X: 1, Y: 2, Z: 3}, End: standalone.Position{X: 4, Y: 5, Z: 6}},
		{Start: standalone.Position{X: 4, Y: 5, Z: 6}, End: standalone.Position{X: 7, Y: 8, Z: 9}},
	}

	assert.Equal(t, plotter.XYs{{X: 1, Y: 3}, {X: 4, Y: 6}, {X: 7, Y: 9}}, Path(moves, arc.PlaneXZ))
	assert.Equal(t, plotter.XYs{{X: 2, Y: 3}, {X: 5, Y: 6}, {X: 8, Y: 9}}, Path(moves, arc.PlaneYZ))
	assert.Nil(t, Path(nil, arc.PlaneXY))
}

func TestRenderWritesImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arc.png")
	require.NoError(t, Render(segmentMoves(t, quarterCircle()), arc.PlaneXY, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	assert.ErrorIs(t, Render(nil, arc.PlaneXY, path), ErrNoMoves)
}

func TestDeviationQuarterCircle(t *testing.T) {
	seg, err := arc.NewSegmenter(1, 25)
	require.NoError(t, err)

	rep, err := Deviation(quarterCircle(), seg)
	require.NoError(t, err)

	assert.Equal(t, 15, rep.Geometry.Segments)
	assert.True(t, rep.EndpointExact)
	assert.Less(t, rep.MaxRadial, 0.01)
	assert.LessOrEqual(t, rep.MeanRadial, rep.MaxRadial)

	// Chord sagitta r(1 - cos(θ/2)) for 15 segments over a quarter turn
	theta := math.Pi / 2 / 15
	assert.InDelta(t, 10*(1-math.Cos(theta/2)), rep.MaxSagitta, 0.002)
}

func TestDeviationShrinksWithResolution(t *testing.T) {
	coarse, err := arc.NewSegmenter(2, 25)
	require.NoError(t, err)
	fine, err := arc.NewSegmenter(0.25, 25)
	require.NoError(t, err)

	a, err := Deviation(quarterCircle(), coarse)
	require.NoError(t, err)
	b, err := Deviation(quarterCircle(), fine)
	require.NoError(t, err)

	assert.Less(t, b.MaxSagitta, a.MaxSagitta)
	assert.Greater(t, b.Geometry.Segments, a.Geometry.Segments)
}

func TestDeviationDegenerate(t *testing.T) {
	seg, err := arc.NewSegmenter(1, 25)
	require.NoError(t, err)

	req := arc.NewRequest(arc.AxisVector{}, arc.AxisVector{}, [2]float64{0.0001, 0}, arc.PlaneXY, arc.Clockwise, 10, 0)
	req.Radius = 0.0001
	_, err = Deviation(req, seg)
	assert.ErrorIs(t, err, ErrNoMoves)
}

func TestParsePlane(t *testing.T) {
	for name, want := range map[string]arc.Plane{
		"xy": arc.PlaneXY, "XZ": arc.PlaneXZ, "yz": arc.PlaneYZ,
		"G17": arc.PlaneXY, "g18": arc.PlaneXZ, "G19": arc.PlaneYZ,
	} {
		got, err := ParsePlane(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParsePlane("xe")
	assert.Error(t, err)
}
