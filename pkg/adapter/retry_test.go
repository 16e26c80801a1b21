package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type transientAdapter struct {
	failures int
	calls    int
	err      error
}

func (a *transientAdapter) Generate(_ context.Context, prompt string, _ Options) (*Response, error) {
	a.calls++
	if a.calls <= a.failures {
		if a.err != nil {
			return nil, a.err
		}
		return nil, &AdapterError{Provider: "transient", Status: 429, Err: fmt.Errorf("%w: slow down", ErrRateLimited)}
	}
	return &Response{Text: "ok", Usage: Usage{InputTokens: 10}}, nil
}

func (a *transientAdapter) Name() string { return "transient" }

func (a *transientAdapter) Models() []string { return []string{"mock-1"} }

func noSleep(context.Context, time.Duration) error { return nil }

func TestRetryWithTransientErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	inner := &transientAdapter{failures: 2}
	wrapped := WithRetry(inner, RetryPolicy{MaxRetries: 2, BaseBackoffMs: 1, MaxBackoffMs: 2}, zap.New(core))
	wrapped.(*retryAdapter).sleep = noSleep

	resp, err := wrapped.Generate(context.Background(), "prompt", Options{})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected response: %q", resp.Text)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", inner.calls)
	}
	if logs.Len() != 2 {
		t.Fatalf("expected 2 retry logs, got %d", logs.Len())
	}
	if logs.All()[0].ContextMap()["provider"] != "transient" {
		t.Fatalf("expected provider field on retry log")
	}
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	inner := &transientAdapter{failures: 5}
	wrapped := WithRetry(inner, RetryPolicy{MaxRetries: 1}, nil)
	wrapped.(*retryAdapter).sleep = noSleep

	_, err := wrapped.Generate(context.Background(), "prompt", Options{})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", inner.calls)
	}
}

func TestRetrySkipsPermanentErrors(t *testing.T) {
	inner := &transientAdapter{failures: 1, err: &AdapterError{Provider: "transient", Status: 401, Err: ErrAuthentication}}
	wrapped := WithRetry(inner, DefaultRetryPolicy(), nil)
	wrapped.(*retryAdapter).sleep = noSleep

	_, err := wrapped.Generate(context.Background(), "prompt", Options{})
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected a single call, got %d", inner.calls)
	}
}

func TestComputeBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 200 * time.Millisecond},
		{1, 400 * time.Millisecond},
		{2, 800 * time.Millisecond},
		{5, 2000 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := computeBackoff(200, 2000, tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: got %v want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestRateLimitBlocksUntilContextDone(t *testing.T) {
	inner := NewMockAdapter()
	limited := WithRateLimit(inner, 1, time.Hour)

	if _, err := limited.Generate(context.Background(), "first", Options{}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := limited.Generate(ctx, "second", Options{}); err == nil {
		t.Fatalf("expected rate limiter to reject second call")
	}
	if len(inner.Calls()) != 1 {
		t.Fatalf("expected 1 call to reach the adapter, got %d", len(inner.Calls()))
	}
}

func TestRateLimitDisabled(t *testing.T) {
	inner := NewMockAdapter()
	if WithRateLimit(inner, 0, time.Second) != Adapter(inner) {
		t.Fatalf("expected adapter to be returned unchanged")
	}
}
