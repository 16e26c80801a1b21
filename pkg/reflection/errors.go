package reflection

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidStrategy matches every InvalidStrategyError.
	ErrInvalidStrategy = errors.New("invalid reflection strategy")
	// ErrInvalidIterations is returned for a negative iteration count.
	ErrInvalidIterations = errors.New("iterations must be non-negative")
	// ErrGenerationFailed matches every GenerationError.
	ErrGenerationFailed = errors.New("generation failed")
)

// InvalidStrategyError reports a strategy identifier outside the catalog.
type InvalidStrategyError struct {
	Value string
	Valid []Strategy
}

func (e *InvalidStrategyError) Error() string {
	names := make([]string, len(e.Valid))
	for i, s := range e.Valid {
		names[i] = string(s)
	}
	return fmt.Sprintf("invalid reflection strategy %q: must be one of %s", e.Value, strings.Join(names, ", "))
}

func (e *InvalidStrategyError) Is(target error) bool {
	return target == ErrInvalidStrategy
}

// UnknownStrategyError is returned by BuildPrompt for a tag with no template.
type UnknownStrategyError struct {
	Strategy Strategy
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown reflection strategy %q", string(e.Strategy))
}

func (e *UnknownStrategyError) Is(target error) bool {
	return target == ErrInvalidStrategy
}

// GenerationError wraps an adapter failure with the round it happened in.
// Round 0 is the initial generation.
type GenerationError struct {
	Round int
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Round == 0 {
		return fmt.Sprintf("initial generation failed: %v", e.Err)
	}
	return fmt.Sprintf("reflection round %d failed: %v", e.Round, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}
