package adapter

import (
	"context"
	"encoding/json"
	"fmt"
)

// DefaultSystemPrompt is used when an adapter is created without one.
const DefaultSystemPrompt = "You are a helpful assistant"

// Defaults applied by provider adapters when Options leaves a field unset.
const (
	DefaultTemperature = 0.0
	DefaultTopP        = 1.0
	DefaultMaxTokens   = 512
)

// Adapter defines the interface for LLM provider adapters.
type Adapter interface {
	// Generate sends a prompt to the model and returns a normalized response.
	Generate(ctx context.Context, prompt string, opts Options) (*Response, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of suggested models.
	Models() []string
}

// Options carries per-call generation parameters. The reflection engine
// forwards them untouched; each adapter maps what its provider supports.
// Pointer fields distinguish "not set" from a zero value.
type Options struct {
	Model       string         `json:"model,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   *int           `json:"max_tokens,omitempty"`
	TopP        *float64       `json:"top_p,omitempty"`
	TopK        *int           `json:"top_k,omitempty"`
	Stop        []string       `json:"stop,omitempty"`
	Seed        *int           `json:"seed,omitempty"`
	Tools       []Tool         `json:"tools,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Tool is a function definition in JSON-schema form.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Validate checks parameter ranges.
func (o Options) Validate() error {
	if o.Temperature != nil && (*o.Temperature < 0.0 || *o.Temperature > 2.0) {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f: %w", *o.Temperature, ErrInvalidRequest)
	}
	if o.TopP != nil && (*o.TopP < 0.0 || *o.TopP > 1.0) {
		return fmt.Errorf("top_p must be between 0.0 and 1.0, got %f: %w", *o.TopP, ErrInvalidRequest)
	}
	if o.TopK != nil && *o.TopK < 0 {
		return fmt.Errorf("top_k must be non-negative, got %d: %w", *o.TopK, ErrInvalidRequest)
	}
	if o.MaxTokens != nil && *o.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be positive, got %d: %w", *o.MaxTokens, ErrInvalidRequest)
	}
	for i, tool := range o.Tools {
		if tool.Name == "" {
			return fmt.Errorf("tool %d has no name: %w", i, ErrInvalidRequest)
		}
	}
	return nil
}

// Merge returns a copy of o with every field that is set in override
// replacing the corresponding field of o. Extra maps are merged key by key.
func (o Options) Merge(override Options) Options {
	out := o
	if override.Model != "" {
		out.Model = override.Model
	}
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}
	if override.TopP != nil {
		out.TopP = override.TopP
	}
	if override.TopK != nil {
		out.TopK = override.TopK
	}
	if len(override.Stop) > 0 {
		out.Stop = override.Stop
	}
	if override.Seed != nil {
		out.Seed = override.Seed
	}
	if len(override.Tools) > 0 {
		out.Tools = override.Tools
	}
	if len(override.Extra) > 0 {
		extra := make(map[string]any, len(o.Extra)+len(override.Extra))
		for k, v := range o.Extra {
			extra[k] = v
		}
		for k, v := range override.Extra {
			extra[k] = v
		}
		out.Extra = extra
	}
	return out
}

// OptionsFromMap converts a loosely typed parameter map (for example the
// params block of a models.yaml entry) into Options. Keys that do not map
// onto a named field are kept in Extra. A single stop string is accepted
// in place of a list.
func OptionsFromMap(params map[string]any) (Options, error) {
	if len(params) == 0 {
		return Options{}, nil
	}

	if stop, ok := params["stop"].(string); ok {
		normalized := make(map[string]any, len(params))
		for key, value := range params {
			normalized[key] = value
		}
		normalized["stop"] = []string{stop}
		params = normalized
	}

	data, err := json.Marshal(params)
	if err != nil {
		return Options{}, fmt.Errorf("failed to marshal params: %w", err)
	}

	var opts Options
	if err := json.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("failed to unmarshal params: %w", err)
	}

	for key, value := range params {
		if knownOptionKeys[key] {
			continue
		}
		if opts.Extra == nil {
			opts.Extra = make(map[string]any)
		}
		opts.Extra[key] = value
	}
	return opts, nil
}

var knownOptionKeys = map[string]bool{
	"model":       true,
	"temperature": true,
	"max_tokens":  true,
	"top_p":       true,
	"top_k":       true,
	"stop":        true,
	"seed":        true,
	"tools":       true,
	"extra":       true,
}

func (o Options) temperature() float64 {
	if o.Temperature != nil {
		return *o.Temperature
	}
	return DefaultTemperature
}

func (o Options) topP() float64 {
	if o.TopP != nil {
		return *o.TopP
	}
	return DefaultTopP
}

func (o Options) maxTokens() int {
	if o.MaxTokens != nil {
		return *o.MaxTokens
	}
	return DefaultMaxTokens
}

func (o Options) model(fallback string) string {
	if o.Model != "" {
		return o.Model
	}
	return fallback
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
