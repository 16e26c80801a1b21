package adapter

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

type rateLimitedAdapter struct {
	Adapter
	limiter *rate.Limiter
}

// WithRateLimit wraps next so that at most calls generations start per
// period. Callers block until a token is available or ctx is done.
func WithRateLimit(next Adapter, calls int, period time.Duration) Adapter {
	if calls <= 0 || period <= 0 {
		return next
	}
	limit := rate.Limit(float64(calls) / period.Seconds())
	return &rateLimitedAdapter{Adapter: next, limiter: rate.NewLimiter(limit, calls)}
}

func (r *rateLimitedAdapter) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &AdapterError{Provider: r.Adapter.Name(), Err: fmt.Errorf("rate limiter: %w", err)}
	}
	return r.Adapter.Generate(ctx, prompt, opts)
}
