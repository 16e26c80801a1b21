package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicAdapter implements the Adapter interface for Claude models.
type AnthropicAdapter struct {
	client       anthropic.Client
	defaultModel string
	systemPrompt string
}

// AnthropicConfig configures the Anthropic adapter.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	SystemPrompt string
}

// NewAnthropicAdapter creates a new Anthropic adapter.
func NewAnthropicAdapter(apiKey string) (*AnthropicAdapter, error) {
	return NewAnthropicAdapterWithConfig(AnthropicConfig{APIKey: apiKey})
}

// NewAnthropicAdapterWithConfig creates an Anthropic adapter from cfg.
func NewAnthropicAdapterWithConfig(cfg AnthropicConfig) (*AnthropicAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required: %w", ErrAuthentication)
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(cfg.APIKey),
		anthropicoption.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(cfg.BaseURL))
	}

	a := &AnthropicAdapter{
		client:       anthropic.NewClient(opts...),
		defaultModel: cfg.DefaultModel,
		systemPrompt: cfg.SystemPrompt,
	}
	if a.defaultModel == "" {
		a.defaultModel = "claude-3-5-sonnet-20241022"
	}
	if a.systemPrompt == "" {
		a.systemPrompt = DefaultSystemPrompt
	}
	return a, nil
}

// Name returns the adapter identifier.
func (a *AnthropicAdapter) Name() string {
	return "anthropic"
}

// Models returns the list of suggested Claude models.
func (a *AnthropicAdapter) Models() []string {
	return []string{
		"claude-3-5-sonnet-20241022",
		"claude-sonnet-4-20250514",
		"claude-opus-4-20250514",
	}
}

// Generate sends a prompt to Claude and normalizes the response.
func (a *AnthropicAdapter) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	model := opts.model(a.defaultModel)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(opts.maxTokens()),
		System:    []anthropic.TextBlockParam{{Text: a.systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature:   anthropic.Float(opts.temperature()),
		StopSequences: opts.Stop,
	}
	if opts.TopP != nil {
		params.TopP = anthropic.Float(*opts.TopP)
	}
	if opts.TopK != nil {
		params.TopK = anthropic.Int(int64(*opts.TopK))
	}
	for _, tool := range opts.Tools {
		params.Tools = append(params.Tools, anthropicTool(tool))
	}

	var reqOpts []anthropicoption.RequestOption
	for key, value := range opts.Extra {
		reqOpts = append(reqOpts, anthropicoption.WithJSONSet(key, value))
	}

	resp, err := a.client.Messages.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, wrapProviderError(a.Name(), err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	raw := map[string]any{
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
	}
	servedBy := string(resp.Model)
	if servedBy == "" {
		servedBy = model
	}
	return &Response{
		Text:       content.String(),
		Usage:      NormalizeUsage(raw, a.Name()),
		StopReason: string(resp.StopReason),
		Model:      servedBy,
	}, nil
}

func anthropicTool(tool Tool) anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{}
	extra := make(map[string]any)
	for key, value := range tool.Parameters {
		switch key {
		case "type":
		case "properties":
			schema.Properties = value
		case "required":
			schema.Required = toStrings(value)
		default:
			extra[key] = value
		}
	}
	if len(extra) > 0 {
		schema.ExtraFields = extra
	}

	union := anthropic.ToolUnionParamOfTool(schema, tool.Name)
	if tool.Description != "" && union.OfTool != nil {
		union.OfTool.Description = anthropic.String(tool.Description)
	}
	return union
}

func toStrings(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
