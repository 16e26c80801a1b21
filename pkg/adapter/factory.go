package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Settings carries everything a provider adapter may need at construction.
// Fields a provider does not use are ignored.
type Settings struct {
	APIKey          string
	BaseURL         string
	DefaultModel    string
	SystemPrompt    string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type constructor func(ctx context.Context, s Settings) (Adapter, error)

var constructors = map[string]constructor{
	"openai": func(_ context.Context, s Settings) (Adapter, error) {
		return NewOpenAICompatibleAdapter(OpenAIConfig{
			Name: "openai", APIKey: s.APIKey, BaseURL: s.BaseURL,
			DefaultModel: s.DefaultModel, SystemPrompt: s.SystemPrompt,
		})
	},
	"ollama": func(_ context.Context, s Settings) (Adapter, error) {
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = ollamaBaseURL
		}
		apiKey := s.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAICompatibleAdapter(OpenAIConfig{
			Name: "ollama", APIKey: apiKey, BaseURL: baseURL,
			DefaultModel: s.DefaultModel, SystemPrompt: s.SystemPrompt,
		})
	},
	"deepseek": func(_ context.Context, s Settings) (Adapter, error) {
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = deepseekBaseURL
		}
		return NewOpenAICompatibleAdapter(OpenAIConfig{
			Name: "deepseek", APIKey: s.APIKey, BaseURL: baseURL,
			DefaultModel: s.DefaultModel, SystemPrompt: s.SystemPrompt,
		})
	},
	"anthropic": func(_ context.Context, s Settings) (Adapter, error) {
		return NewAnthropicAdapterWithConfig(AnthropicConfig{
			APIKey: s.APIKey, BaseURL: s.BaseURL,
			DefaultModel: s.DefaultModel, SystemPrompt: s.SystemPrompt,
		})
	},
	"gemini": func(ctx context.Context, s Settings) (Adapter, error) {
		return NewGoogleAdapterWithConfig(ctx, GoogleConfig{
			APIKey: s.APIKey, BaseURL: s.BaseURL,
			DefaultModel: s.DefaultModel, SystemPrompt: s.SystemPrompt,
		})
	},
	"bedrock": func(ctx context.Context, s Settings) (Adapter, error) {
		return NewBedrockAdapter(ctx, BedrockConfig{
			Region: s.Region, AccessKeyID: s.AccessKeyID, SecretAccessKey: s.SecretAccessKey,
			DefaultModel: s.DefaultModel, SystemPrompt: s.SystemPrompt,
		})
	},
	"mock": func(_ context.Context, _ Settings) (Adapter, error) {
		return NewMockAdapter(), nil
	},
	"lorem": func(_ context.Context, _ Settings) (Adapter, error) {
		return NewLoremAdapter(), nil
	},
}

var providerAliases = map[string]string{
	"google": "gemini",
	"claude": "anthropic",
}

// Providers returns the supported provider names, sorted.
func Providers() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CanonicalProvider resolves aliases such as "google" to the name used by
// the factory. Unknown names are returned lowercased.
func CanonicalProvider(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := providerAliases[name]; ok {
		return canonical
	}
	return name
}

// New creates an adapter for the named provider.
func New(ctx context.Context, provider string, s Settings) (Adapter, error) {
	ctor, ok := constructors[CanonicalProvider(provider)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownProvider, provider, strings.Join(Providers(), ", "))
	}
	a, err := ctor(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("create %s adapter: %w", CanonicalProvider(provider), err)
	}
	return a, nil
}
