package pipeline

import (
	"context"
	"time"

	"github.com/kbukum/livecue/clock"
)

// Throttle emits at most one value per interval and drops the rest. A nil
// clk uses the real clock.
func Throttle[T any](p *Pipeline[T], interval time.Duration, clk clock.Clock) *Pipeline[T] {
	if clk == nil {
		clk = clock.Real()
	}
	return FromFunc(func(ctx context.Context) Iterator[T] {
		var last time.Time
		return stage(p, func(ctx context.Context, src Iterator[T]) (T, bool, error) {
			for {
				v, ok, err := src.Next(ctx)
				if err != nil || !ok {
					return v, ok, err
				}
				if now := clk.Now(); last.IsZero() || now.Sub(last) >= interval {
					last = now
					return v, true, nil
				}
			}
		}).open(ctx)
	})
}
