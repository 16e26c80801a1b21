package reflection

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/drimal/llm-manager/pkg/adapter"
)

// Iteration records one reflection round.
type Iteration struct {
	Iteration int    `json:"iteration"`
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
}

// Result is the outcome of a completed reflection session.
type Result struct {
	SessionID     string        `json:"session_id"`
	OriginalQuery string        `json:"original_query"`
	Iterations    []Iteration   `json:"iterations"`
	FinalResponse string        `json:"final_response"`
	StrategyUsed  Strategy      `json:"strategy_used"`
	TotalTokens   int           `json:"total_tokens"`
	Provider      string        `json:"provider"`
	Model         string        `json:"model,omitempty"`
	Usage         adapter.Usage `json:"usage"`
	Cost          *adapter.Cost `json:"cost,omitempty"`
	StopReason    string        `json:"stop_reason,omitempty"`
}

// Engine runs reflection sessions against a single adapter. It holds no
// per-session state, so one Engine may serve concurrent sessions when the
// adapter allows it.
type Engine struct {
	adapter   adapter.Adapter
	logger    *zap.Logger
	pricing   adapter.PricingTable
	sessionID func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPricing enables cost estimates on results.
func WithPricing(pricing adapter.PricingTable) EngineOption {
	return func(e *Engine) {
		e.pricing = pricing
	}
}

// WithSessionIDs overrides session ID generation.
func WithSessionIDs(next func() string) EngineOption {
	return func(e *Engine) {
		if next != nil {
			e.sessionID = next
		}
	}
}

// NewEngine creates an engine that generates through a.
func NewEngine(a adapter.Adapter, opts ...EngineOption) *Engine {
	e := &Engine{
		adapter:   a,
		logger:    zap.NewNop(),
		sessionID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reflect answers query, then runs iterations rounds of self-reflection in
// the posture of strategy. Each round sees the original query and the
// previous round's text. genOpts is forwarded unchanged to every call.
//
// Any failure aborts the session and no partial result is returned.
func (e *Engine) Reflect(ctx context.Context, query, strategy string, iterations int, genOpts adapter.Options) (*Result, error) {
	resolved, err := ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	if iterations < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidIterations, iterations)
	}

	sessionID := e.sessionID()
	log := e.logger.With(
		zap.String("session_id", sessionID),
		zap.String("strategy", string(resolved)),
		zap.String("provider", e.adapter.Name()),
	)
	log.Info("reflection started", zap.Int("iterations", iterations))

	resp, err := e.generate(ctx, log, 0, query, genOpts)
	if err != nil {
		return nil, err
	}
	usage := resp.Usage
	previous := resp

	records := make([]Iteration, 0, iterations)
	for round := 1; round <= iterations; round++ {
		prompt, err := BuildPrompt(resolved, query, previous.Text)
		if err != nil {
			return nil, err
		}

		resp, err := e.generate(ctx, log, round, prompt, genOpts)
		if err != nil {
			return nil, err
		}
		usage = usage.Add(resp.Usage)
		records = append(records, Iteration{Iteration: round, Prompt: prompt, Response: resp.Text})
		previous = resp
	}

	result := &Result{
		SessionID:     sessionID,
		OriginalQuery: query,
		Iterations:    records,
		FinalResponse: previous.Text,
		StrategyUsed:  resolved,
		TotalTokens:   usage.Sum(),
		Provider:      e.adapter.Name(),
		Model:         previous.Model,
		Usage:         usage,
		StopReason:    previous.StopReason,
	}
	if result.Model == "" {
		result.Model = genOpts.Model
	}
	if cost, ok := adapter.EstimateCost(e.pricing, result.Provider, result.Model, usage); ok {
		result.Cost = &cost
	}

	log.Info("reflection finished",
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

func (e *Engine) generate(ctx context.Context, log *zap.Logger, round int, prompt string, opts adapter.Options) (*adapter.Response, error) {
	resp, err := e.adapter.Generate(ctx, prompt, opts)
	if err == nil && resp == nil {
		err = fmt.Errorf("%s returned no response", e.adapter.Name())
	}
	if err != nil {
		log.Error("generation failed", zap.Int("round", round), zap.Error(err))
		return nil, &GenerationError{Round: round, Err: err}
	}
	log.Debug("round complete",
		zap.Int("round", round),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)
	return resp, nil
}
