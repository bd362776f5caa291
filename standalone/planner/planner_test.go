package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcmotion/standalone"
	"arcmotion/standalone/config"
	"arcmotion/standalone/kinematics"
)

type collector struct {
	moves []*standalone.Move
	err   error
}

func (c *collector) Execute(_ context.Context, move *standalone.Move) error {
	if c.err != nil {
		return c.err
	}
	c.moves = append(c.moves, move)
	return nil
}

func newTestPlanner(t *testing.T, exec Executor) *Planner {
	t.Helper()
	cfg := config.DefaultCartesianConfig()
	kin, err := kinematics.New(cfg)
	require.NoError(t, err)
	return NewPlanner(cfg, kin, exec)
}

func TestQueueMoveTrapezoid(t *testing.T) {
	p := newTestPlanner(t, nil)

	move := &standalone.Move{
		End:      standalone.Position{X: 100},
		Velocity: 50,
		Accel:    500,
	}
	require.NoError(t, p.QueueMove(move))

	// 2.5mm to accelerate to 50mm/s, 95mm cruise
	assert.Equal(t, 100.0, move.Distance)
	assert.Equal(t, 50.0, move.CruiseVel)
	assert.Equal(t, 100*time.Millisecond, move.AccelTime)
	assert.Equal(t, 1900*time.Millisecond, move.CruiseTime)
	assert.Equal(t, 2100*time.Millisecond, move.Duration)
	assert.Equal(t, standalone.Position{X: 100}, p.GetCurrentPosition())
	assert.Equal(t, 1, p.Pending())
}

func TestQueueMoveTriangle(t *testing.T) {
	p := newTestPlanner(t, nil)

	move := &standalone.Move{End: standalone.Position{X: 2}, Velocity: 100, Accel: 500}
	require.NoError(t, p.QueueMove(move))

	assert.Equal(t, time.Duration(0), move.CruiseTime)
	assert.InDelta(t, 31.62, move.CruiseVel, 0.01)
	assert.Equal(t, move.AccelTime, move.DecelTime)
}

func TestQueueMoveAxisVelocityLimit(t *testing.T) {
	p := newTestPlanner(t, nil)

	// Z is limited to 10mm/s
	move := &standalone.Move{End: standalone.Position{Z: 5}, Velocity: 50, Accel: 50}
	require.NoError(t, p.QueueMove(move))
	assert.InDelta(t, 10.0, move.Velocity, 1e-9)
}

func TestQueueMoveRejectsOutOfLimits(t *testing.T) {
	p := newTestPlanner(t, nil)

	err := p.QueueMove(&standalone.Move{End: standalone.Position{X: -10}})
	assert.ErrorIs(t, err, kinematics.ErrOutOfLimits)
	assert.True(t, p.IsIdle())
}

func TestFlushPreservesOrder(t *testing.T) {
	exec := &collector{}
	p := newTestPlanner(t, exec)

	for _, x := range []float64{10, 20, 30} {
		require.NoError(t, p.QueueMove(&standalone.Move{
			Start: p.GetCurrentPosition(),
			End:   standalone.Position{X: x},
		}))
	}
	require.NoError(t, p.Flush(context.Background()))

	require.Len(t, exec.moves, 3)
	for i, x := range []float64{10, 20, 30} {
		assert.Equal(t, x, exec.moves[i].End.X)
	}
	assert.True(t, p.IsIdle())
}

func TestFlushStopsOnError(t *testing.T) {
	exec := &collector{err: errors.New("link down")}
	p := newTestPlanner(t, exec)

	require.NoError(t, p.QueueMove(&standalone.Move{End: standalone.Position{X: 10}}))
	err := p.Flush(context.Background())
	assert.ErrorIs(t, err, exec.err)
	assert.Equal(t, 1, p.Pending())
}

func TestFlushHonoursContext(t *testing.T) {
	exec := &collector{}
	p := newTestPlanner(t, exec)
	require.NoError(t, p.QueueMove(&standalone.Move{End: standalone.Position{X: 10}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Flush(ctx), context.Canceled)
	assert.Empty(t, exec.moves)

	p.ClearQueue()
	assert.True(t, p.IsIdle())
}
