package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// Sentinel errors for provider failures. Provider adapters wrap SDK errors
// in an AdapterError whose Err chain includes one of these.
var (
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrAPIConnection       = errors.New("api connection error")
	ErrAuthentication      = errors.New("authentication error")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrTokenLimit          = errors.New("token limit exceeded")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// AdapterError wraps provider errors with status metadata.
type AdapterError struct {
	Provider  string
	Status    int
	Temporary bool
	Err       error
}

func (e *AdapterError) Error() string {
	if e == nil {
		return "adapter error"
	}
	prefix := "adapter error"
	if e.Provider != "" {
		prefix = e.Provider + " API error"
	}
	if e.Err != nil {
		if e.Status != 0 {
			return fmt.Sprintf("%s (status=%d): %v", prefix, e.Status, e.Err)
		}
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return fmt.Sprintf("%s (status=%d)", prefix, e.Status)
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient reports whether an error is safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrAPIConnection) || errors.Is(err, ErrProviderUnavailable) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		if adapterErr.Temporary {
			return true
		}
		if adapterErr.Status == http.StatusTooManyRequests || (adapterErr.Status >= 500 && adapterErr.Status <= 599) {
			return true
		}
	}
	return false
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// httpStatusError is satisfied by smithy-go response errors (Bedrock).
type httpStatusError interface {
	HTTPStatusCode() int
}

// wrapProviderError converts an SDK error into an AdapterError carrying the
// HTTP status and the matching sentinel.
func wrapProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &AdapterError{Provider: provider, Err: err}
	}

	status := statusOf(err)
	sentinel := sentinelForStatus(status)
	if status == 0 {
		var netErr net.Error
		if errors.As(err, &netErr) {
			return &AdapterError{Provider: provider, Temporary: netErr.Timeout(), Err: fmt.Errorf("%w: %w", ErrAPIConnection, err)}
		}
	}
	if sentinel == nil {
		return &AdapterError{Provider: provider, Status: status, Err: err}
	}
	return &AdapterError{Provider: provider, Status: status, Err: fmt.Errorf("%w: %w", sentinel, err)}
}

func statusOf(err error) int {
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode
	}
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return genaiErr.Code
	}
	var genaiErrPtr *genai.APIError
	if errors.As(err, &genaiErrPtr) && genaiErrPtr != nil {
		return genaiErrPtr.Code
	}
	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.HTTPStatusCode()
	}
	return 0
}

func sentinelForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthentication
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusRequestEntityTooLarge:
		return ErrTokenLimit
	case status == http.StatusBadRequest || status == http.StatusNotFound || status == http.StatusUnprocessableEntity:
		return ErrInvalidRequest
	case status >= 500 && status <= 599:
		return ErrProviderUnavailable
	default:
		return nil
	}
}
