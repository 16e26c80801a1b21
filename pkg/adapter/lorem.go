package adapter

import (
	"context"
	"strings"
	"sync"

	loremgen "github.com/bozaro/golorem"
)

// LoremAdapter generates lorem ipsum text. Used for development without
// API keys.
type LoremAdapter struct {
	mu        sync.Mutex
	generator *loremgen.Lorem
}

// NewLoremAdapter creates a lorem ipsum adapter.
func NewLoremAdapter() *LoremAdapter {
	return &LoremAdapter{generator: loremgen.New()}
}

// Name returns the adapter identifier.
func (a *LoremAdapter) Name() string {
	return "lorem"
}

// Models returns the list of supported lorem models.
func (a *LoremAdapter) Models() []string {
	return []string{"lorem-fast", "lorem-small"}
}

// Generate produces roughly MaxTokens words of filler text. Token counts
// are word counts.
func (a *LoremAdapter) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AdapterError{Provider: a.Name(), Err: err}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	target := opts.maxTokens()
	if strings.Contains(opts.Model, "small") && target > 32 {
		target = 32
	}

	a.mu.Lock()
	var sb strings.Builder
	words := 0
	for words < target {
		sentence := a.generator.Sentence(5, 15)
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(sentence)
		words += len(strings.Fields(sentence))
	}
	a.mu.Unlock()

	raw := map[string]any{
		"input_tokens":  len(strings.Fields(prompt)),
		"output_tokens": words,
	}
	return &Response{
		Text:       sb.String(),
		Usage:      NormalizeUsage(raw, a.Name()),
		StopReason: "end_turn",
		Model:      opts.model("lorem-fast"),
	}, nil
}
