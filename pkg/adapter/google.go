package adapter

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleAdapter implements the Adapter interface for Gemini models.
type GoogleAdapter struct {
	client       *genai.Client
	defaultModel string
	systemPrompt string
}

// GoogleConfig configures the Gemini adapter.
type GoogleConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	SystemPrompt string
}

// NewGoogleAdapter creates a new Google Gemini adapter.
func NewGoogleAdapter(apiKey string) (*GoogleAdapter, error) {
	return NewGoogleAdapterWithConfig(context.Background(), GoogleConfig{APIKey: apiKey})
}

// NewGoogleAdapterWithConfig creates a Gemini adapter from cfg.
func NewGoogleAdapterWithConfig(ctx context.Context, cfg GoogleConfig) (*GoogleAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google API key is required: %w", ErrAuthentication)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	a := &GoogleAdapter{
		client:       client,
		defaultModel: cfg.DefaultModel,
		systemPrompt: cfg.SystemPrompt,
	}
	if a.defaultModel == "" {
		a.defaultModel = "gemini-1.5-flash"
	}
	if a.systemPrompt == "" {
		a.systemPrompt = DefaultSystemPrompt
	}
	return a, nil
}

// Name returns the adapter identifier.
func (a *GoogleAdapter) Name() string {
	return "gemini"
}

// Models returns the list of suggested Gemini models.
func (a *GoogleAdapter) Models() []string {
	return []string{
		"gemini-1.5-flash",
		"gemini-1.5-pro",
		"gemini-2.0-flash",
	}
}

// Generate sends a prompt to Gemini and normalizes the response.
func (a *GoogleAdapter) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	model := opts.model(a.defaultModel)
	resp, err := a.client.Models.GenerateContent(ctx, model, genai.Text(prompt), a.generationConfig(opts))
	if err != nil {
		return nil, wrapProviderError(a.Name(), err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &AdapterError{Provider: a.Name(), Err: fmt.Errorf("google returned no candidates: %w", ErrInvalidRequest)}
	}

	raw := map[string]any{}
	if resp.UsageMetadata != nil {
		raw["input_tokens"] = resp.UsageMetadata.PromptTokenCount
		raw["output_tokens"] = resp.UsageMetadata.CandidatesTokenCount
		raw["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	servedBy := resp.ModelVersion
	if servedBy == "" {
		servedBy = model
	}
	return &Response{
		Text:       resp.Text(),
		Usage:      NormalizeUsage(raw, a.Name()),
		StopReason: string(resp.Candidates[0].FinishReason),
		Model:      servedBy,
	}, nil
}

func (a *GoogleAdapter) generationConfig(opts Options) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(a.systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(opts.temperature())),
		TopP:              genai.Ptr(float32(opts.topP())),
		MaxOutputTokens:   int32(opts.maxTokens()),
		StopSequences:     opts.Stop,
	}
	if opts.TopK != nil {
		cfg.TopK = genai.Ptr(float32(*opts.TopK))
	}
	if opts.Seed != nil {
		cfg.Seed = genai.Ptr(int32(*opts.Seed))
	}
	if len(opts.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(opts.Tools))
		for _, tool := range opts.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 tool.Name,
				Description:          tool.Description,
				ParametersJsonSchema: tool.Parameters,
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return cfg
}
