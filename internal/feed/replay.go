package feed

import (
	"context"

	"golang.org/x/time/rate"

	"amdscan/pkg/model"
)

// Replay delivers a historical series one bar at a time over a channel,
// paced by a token bucket, simulating live bar-close delivery. The
// channel closes after the last bar or when the context is cancelled.
// Order is always the input order; pacing never reorders or drops bars.
func Replay(ctx context.Context, bars []model.Bar, barsPerSecond float64) <-chan model.Bar {
	out := make(chan model.Bar)
	limiter := rate.NewLimiter(rate.Limit(barsPerSecond), 1)

	go func() {
		defer close(out)
		for _, bar := range bars {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case out <- bar:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
