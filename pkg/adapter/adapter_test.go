package adapter

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestOptionsValidate(t *testing.T) {
	cases := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"empty", Options{}, false},
		{"in range", Options{Temperature: Float(0.7), TopP: Float(0.9), TopK: Int(40), MaxTokens: Int(256)}, false},
		{"temperature high", Options{Temperature: Float(2.5)}, true},
		{"top_p high", Options{TopP: Float(1.5)}, true},
		{"top_k negative", Options{TopK: Int(-1)}, true},
		{"max tokens zero", Options{MaxTokens: Int(0)}, true},
		{"unnamed tool", Options{Tools: []Tool{{Description: "x"}}}, true},
	}
	for _, tc := range cases {
		err := tc.opts.Validate()
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("%s: expected ErrInvalidRequest, got %v", tc.name, err)
		}
	}
}

func TestOptionsFromMap(t *testing.T) {
	opts, err := OptionsFromMap(map[string]any{
		"temperature": 0.3,
		"max_tokens":  128,
		"stop":        []any{"END"},
		"num_ctx":     4096,
	})
	if err != nil {
		t.Fatalf("options from map: %v", err)
	}
	if opts.Temperature == nil || *opts.Temperature != 0.3 {
		t.Fatalf("expected temperature 0.3")
	}
	if opts.MaxTokens == nil || *opts.MaxTokens != 128 {
		t.Fatalf("expected max tokens 128")
	}
	if len(opts.Stop) != 1 || opts.Stop[0] != "END" {
		t.Fatalf("unexpected stop: %v", opts.Stop)
	}
	if opts.Extra["num_ctx"] != 4096 {
		t.Fatalf("expected num_ctx in extra, got %v", opts.Extra)
	}

	if _, err := OptionsFromMap(map[string]any{"max_tokens": "lots"}); err == nil {
		t.Fatalf("expected error for non-numeric max_tokens")
	}
}

func TestOptionsFromMapScalarStop(t *testing.T) {
	params := map[string]any{"stop": "###", "top_k": 40}
	opts, err := OptionsFromMap(params)
	if err != nil {
		t.Fatalf("options from map: %v", err)
	}
	if len(opts.Stop) != 1 || opts.Stop[0] != "###" {
		t.Fatalf("expected single stop sequence, got %v", opts.Stop)
	}
	if opts.TopK == nil || *opts.TopK != 40 {
		t.Fatalf("expected top_k 40")
	}
	if _, ok := params["stop"].(string); !ok {
		t.Fatalf("input params must not be modified")
	}
	if len(opts.Extra) != 0 {
		t.Fatalf("stop must not leak into extra: %v", opts.Extra)
	}
}

func TestOptionsMerge(t *testing.T) {
	base := Options{Model: "a", Temperature: Float(0.1), Extra: map[string]any{"x": 1}}
	merged := base.Merge(Options{Temperature: Float(0.9), Extra: map[string]any{"y": 2}})
	if merged.Model != "a" || *merged.Temperature != 0.9 {
		t.Fatalf("unexpected merge: %+v", merged)
	}
	if merged.Extra["x"] != 1 || merged.Extra["y"] != 2 {
		t.Fatalf("expected merged extras, got %v", merged.Extra)
	}
	if _, ok := base.Extra["y"]; ok {
		t.Fatalf("merge must not mutate the receiver")
	}
}

func TestEstimateCost(t *testing.T) {
	pricing := PricingTable{
		"openai": {
			"gpt-1":   {InputPer1K: 0.15, OutputPer1K: 0.60},
			"default": {InputPer1K: 1, OutputPer1K: 1},
		},
	}

	cost, ok := EstimateCost(pricing, "openai", "gpt-1", Usage{InputTokens: 1000, OutputTokens: 500})
	if !ok {
		t.Fatalf("expected pricing match")
	}
	want := 0.15 + 0.30
	if math.Abs(cost.Amount-want) > 1e-9 {
		t.Fatalf("cost amount mismatch: got %.4f want %.4f", cost.Amount, want)
	}
	if !cost.IsEstimate || cost.Currency != "USD" {
		t.Fatalf("unexpected cost metadata: %+v", cost)
	}

	cost, ok = EstimateCost(pricing, "openai", "other", Usage{InputTokens: 1000})
	if !ok || math.Abs(cost.Amount-1) > 1e-9 {
		t.Fatalf("expected default pricing, got %+v", cost)
	}

	if _, ok := EstimateCost(pricing, "anthropic", "x", Usage{}); ok {
		t.Fatalf("expected no pricing for anthropic")
	}
}

func TestFactory(t *testing.T) {
	a, err := New(context.Background(), "mock", Settings{})
	if err != nil {
		t.Fatalf("new mock: %v", err)
	}
	if a.Name() != "mock" {
		t.Fatalf("unexpected adapter: %s", a.Name())
	}

	a, err = New(context.Background(), "Ollama", Settings{})
	if err != nil {
		t.Fatalf("new ollama: %v", err)
	}
	if a.Name() != "ollama" || a.Models()[0] != "nemotron-mini" {
		t.Fatalf("unexpected ollama adapter: %s %v", a.Name(), a.Models())
	}

	if _, err := New(context.Background(), "openai", Settings{}); !IsAuthError(err) {
		t.Fatalf("expected auth error without key, got %v", err)
	}

	_, err = New(context.Background(), "watson", Settings{})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected unknown provider, got %v", err)
	}
	if !strings.Contains(err.Error(), "openai") {
		t.Fatalf("expected supported providers in message: %v", err)
	}
}

func TestCanonicalProvider(t *testing.T) {
	if CanonicalProvider(" Google ") != "gemini" {
		t.Fatalf("expected google alias to resolve to gemini")
	}
	if CanonicalProvider("OpenAI") != "openai" {
		t.Fatalf("expected lowercase name")
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{context.Canceled, false},
		{&AdapterError{Status: 503}, true},
		{&AdapterError{Status: 400}, false},
		{&AdapterError{Temporary: true}, true},
		{ErrAPIConnection, true},
		{ErrTokenLimit, false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
