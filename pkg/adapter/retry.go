package adapter

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy controls how transient failures are retried.
type RetryPolicy struct {
	MaxRetries    int
	BaseBackoffMs int
	MaxBackoffMs  int
}

// DefaultRetryPolicy retries twice with backoff from 200ms up to 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, BaseBackoffMs: 200, MaxBackoffMs: 2000}
}

type retryAdapter struct {
	Adapter
	policy RetryPolicy
	logger *zap.Logger
	sleep  func(context.Context, time.Duration) error
}

// WithRetry wraps next so that transient errors (see IsTransient) are
// retried with exponential backoff. Permanent errors return immediately.
func WithRetry(next Adapter, policy RetryPolicy, logger *zap.Logger) Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &retryAdapter{Adapter: next, policy: policy, logger: logger, sleep: sleepWithContext}
}

func (r *retryAdapter) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		resp, err := r.Adapter.Generate(ctx, prompt, opts)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !IsTransient(err) || attempt == r.policy.MaxRetries {
			break
		}

		backoff := computeBackoff(r.policy.BaseBackoffMs, r.policy.MaxBackoffMs, attempt)
		r.logger.Warn("retrying generation",
			zap.String("provider", r.Adapter.Name()),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if err := r.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func computeBackoff(baseMs, maxMs, attempt int) time.Duration {
	backoff := time.Duration(baseMs) * time.Millisecond
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff >= time.Duration(maxMs)*time.Millisecond {
			return time.Duration(maxMs) * time.Millisecond
		}
	}
	if backoff > time.Duration(maxMs)*time.Millisecond {
		return time.Duration(maxMs) * time.Millisecond
	}
	return backoff
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
