package adapter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
)

const (
	ollamaBaseURL   = "http://localhost:11434/v1"
	deepseekBaseURL = "https://api.deepseek.com/v1"
)

// OpenAIAdapter implements the Adapter interface for OpenAI models and for
// OpenAI-compatible endpoints (Ollama, DeepSeek) reached through a base URL.
type OpenAIAdapter struct {
	client       openai.Client
	name         string
	defaultModel string
	systemPrompt string
	models       []string
}

// OpenAIConfig configures an OpenAI-compatible adapter.
type OpenAIConfig struct {
	Name         string
	APIKey       string
	BaseURL      string
	DefaultModel string
	SystemPrompt string
	HTTPClient   *http.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(apiKey string) (*OpenAIAdapter, error) {
	return NewOpenAICompatibleAdapter(OpenAIConfig{Name: "openai", APIKey: apiKey})
}

// NewOllamaAdapter creates an adapter for a local Ollama server. Ollama
// ignores the API key, so a placeholder is sent.
func NewOllamaAdapter(baseURL string) (*OpenAIAdapter, error) {
	if baseURL == "" {
		baseURL = ollamaBaseURL
	}
	return NewOpenAICompatibleAdapter(OpenAIConfig{Name: "ollama", APIKey: "ollama", BaseURL: baseURL})
}

// NewDeepSeekAdapter creates an adapter for the DeepSeek API.
func NewDeepSeekAdapter(apiKey string) (*OpenAIAdapter, error) {
	return NewOpenAICompatibleAdapter(OpenAIConfig{Name: "deepseek", APIKey: apiKey, BaseURL: deepseekBaseURL})
}

// NewOpenAICompatibleAdapter creates an adapter from an explicit config.
func NewOpenAICompatibleAdapter(cfg OpenAIConfig) (*OpenAIAdapter, error) {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required: %w", cfg.Name, ErrAuthentication)
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(cfg.APIKey),
		openaioption.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, openaioption.WithHTTPClient(cfg.HTTPClient))
	}

	a := &OpenAIAdapter{
		client:       openai.NewClient(opts...),
		name:         cfg.Name,
		defaultModel: cfg.DefaultModel,
		systemPrompt: cfg.SystemPrompt,
	}
	switch cfg.Name {
	case "ollama":
		a.models = []string{"nemotron-mini", "llama3.2", "qwen2.5"}
	case "deepseek":
		a.models = []string{"deepseek-chat", "deepseek-reasoner"}
	default:
		a.models = []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"}
	}
	if a.defaultModel == "" {
		a.defaultModel = a.models[0]
	}
	if a.systemPrompt == "" {
		a.systemPrompt = DefaultSystemPrompt
	}
	return a, nil
}

// Name returns the adapter identifier.
func (a *OpenAIAdapter) Name() string {
	return a.name
}

// Models returns the list of suggested models.
func (a *OpenAIAdapter) Models() []string {
	return a.models
}

// Generate sends a chat completion request and normalizes the response.
func (a *OpenAIAdapter) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	model := opts.model(a.defaultModel)
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(a.systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(opts.temperature()),
		TopP:        openai.Float(opts.topP()),
		MaxTokens:   openai.Int(int64(opts.maxTokens())),
	}
	if opts.Seed != nil {
		params.Seed = openai.Int(int64(*opts.Seed))
	}
	if len(opts.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.Stop}
	}
	for _, tool := range opts.Tools {
		fn := openai.FunctionDefinitionParam{
			Name:       tool.Name,
			Parameters: openai.FunctionParameters(tool.Parameters),
		}
		if tool.Description != "" {
			fn.Description = openai.String(tool.Description)
		}
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{Function: fn})
	}

	var reqOpts []openaioption.RequestOption
	if opts.TopK != nil {
		reqOpts = append(reqOpts, openaioption.WithJSONSet("top_k", *opts.TopK))
	}
	for key, value := range opts.Extra {
		reqOpts = append(reqOpts, openaioption.WithJSONSet(key, value))
	}

	resp, err := a.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, wrapProviderError(a.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &AdapterError{Provider: a.name, Err: fmt.Errorf("%s returned no choices: %w", a.name, ErrInvalidRequest)}
	}

	raw := map[string]any{
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"total_tokens":      resp.Usage.TotalTokens,
	}
	servedBy := resp.Model
	if servedBy == "" {
		servedBy = model
	}
	return &Response{
		Text:       resp.Choices[0].Message.Content,
		Usage:      NormalizeUsage(raw, a.name),
		StopReason: string(resp.Choices[0].FinishReason),
		Model:      servedBy,
	}, nil
}
