package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	current time.Time
	waits   []time.Duration
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) wait(_ context.Context, d time.Duration) error {
	c.waits = append(c.waits, d)
	c.current = c.current.Add(d)
	return nil
}

func newTestGate(interval time.Duration) (*Gate, *fakeClock) {
	clock := &fakeClock{current: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	g := New(interval)
	g.now = clock.now
	g.wait = clock.wait
	return g, clock
}

func TestGateFirstCallDoesNotWait(t *testing.T) {
	g, clock := newTestGate(2 * time.Second)

	waited, err := g.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, waited)
	assert.Empty(t, clock.waits)
	assert.Equal(t, clock.current, g.Last())
}

func TestGateKeepsMinimumIntervalBetweenStarts(t *testing.T) {
	g, clock := newTestGate(2 * time.Second)

	var starts []time.Time
	for i := 0; i < 4; i++ {
		_, err := g.Wait(context.Background())
		require.NoError(t, err)
		starts = append(starts, clock.current)
		clock.current = clock.current.Add(500 * time.Millisecond)
	}

	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), 2*time.Second)
	}
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 1500 * time.Millisecond, 1500 * time.Millisecond}, clock.waits)
}

func TestGateNoWaitWhenIntervalElapsed(t *testing.T) {
	g, clock := newTestGate(time.Second)

	_, err := g.Wait(context.Background())
	require.NoError(t, err)
	clock.current = clock.current.Add(3 * time.Second)

	waited, err := g.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, waited)
	assert.Empty(t, clock.waits)
}

func TestGateCancelledWaitIsNotRecorded(t *testing.T) {
	g, clock := newTestGate(time.Minute)
	_, err := g.Wait(context.Background())
	require.NoError(t, err)
	first := g.Last()

	g.wait = func(context.Context, time.Duration) error { return context.Canceled }
	clock.current = clock.current.Add(time.Second)

	_, err = g.Wait(context.Background())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, first, g.Last())
}

func TestGateRealClock(t *testing.T) {
	g := New(30 * time.Millisecond)

	_, err := g.Wait(context.Background())
	require.NoError(t, err)
	first := time.Now()

	_, err = g.Wait(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(first), 25*time.Millisecond)
}
