// Package throttle enforces a minimum interval between outbound calls.
package throttle

import (
	"context"
	"time"

	"github.com/spigell/resume-analyzer/internal/utils"
)

// Gate lets one call through per interval. It has no burst allowance and
// is not safe for concurrent use: callers sharing a gate must serialize.
type Gate struct {
	interval time.Duration
	last     time.Time

	now  func() time.Time
	wait func(context.Context, time.Duration) error
}

func New(interval time.Duration) *Gate {
	if interval < 0 {
		interval = 0
	}
	return &Gate{
		interval: interval,
		now:      time.Now,
		wait:     utils.WaitFor,
	}
}

// Wait blocks until the interval since the previously accepted call has
// elapsed, then records the current call as accepted. It returns the time
// spent waiting.
func (g *Gate) Wait(ctx context.Context) (time.Duration, error) {
	var waited time.Duration

	if !g.last.IsZero() {
		if remaining := g.interval - g.now().Sub(g.last); remaining > 0 {
			if err := g.wait(ctx, remaining); err != nil {
				return 0, err
			}
			waited = remaining
		}
	}

	g.last = g.now()
	return waited, nil
}

// WithClock replaces the clock and the sleep function. Used by tests.
func (g *Gate) WithClock(now func() time.Time, wait func(context.Context, time.Duration) error) *Gate {
	if now != nil {
		g.now = now
	}
	if wait != nil {
		g.wait = wait
	}
	return g
}

// Interval is the minimum gap between accepted calls.
func (g *Gate) Interval() time.Duration { return g.interval }

// Last returns when the previous call was accepted; zero before the first.
func (g *Gate) Last() time.Time { return g.last }
