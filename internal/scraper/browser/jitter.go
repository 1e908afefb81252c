package browser

import (
	"context"
	"math/rand"
	"time"
)

// Jitter is a randomized pause range used to pace automated interactions
// like a person would. The zero value never pauses.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Fixed returns a Jitter that always pauses for d.
func Fixed(d time.Duration) Jitter {
	return Jitter{Min: d, Max: d}
}

// Duration draws a pause uniformly from [Min, Max].
func (j Jitter) Duration() time.Duration {
	if j.Max <= j.Min {
		return max(j.Min, 0)
	}
	return j.Min + time.Duration(rand.Int63n(int64(j.Max-j.Min)+1))
}

// Scale multiplies both bounds by f. Non-positive factors disable pacing.
func (j Jitter) Scale(f float64) Jitter {
	if f <= 0 {
		return Jitter{}
	}
	return Jitter{
		Min: time.Duration(float64(j.Min) * f),
		Max: time.Duration(float64(j.Max) * f),
	}
}

// Sleep pauses for a drawn duration, returning early with ctx's error if it
// is cancelled first.
func (j Jitter) Sleep(ctx context.Context) error {
	return sleep(ctx, j.Duration())
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
