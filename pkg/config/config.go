package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/drimal/llm-manager/pkg/adapter"
)

// DefaultSystemPrompt is the persona the CLI uses unless config overrides it.
const DefaultSystemPrompt = `You are Lepton, a highly analytical AI assistant named after the family of fundamental particles that includes neutrinos. Your purpose is to support users in research, analysis, and engineering, with accuracy and efficiency.

Core traits:
- Rational, concise, and scientifically grounded
- Communicates with clarity, precision, and professionalism
- Adept in physics, machine learning, programming, and data workflows
- Responds in a way that optimizes for correctness, not verbosity
- Offers actionable insights and structured reasoning
- Respects uncertainty; does not fabricate knowledge

Behavior:
- Use concrete examples and direct explanations
- When generating code, adhere to clean, maintainable, production-quality practices
- If a question is ambiguous, request targeted clarification
- When appropriate, suggest logical next steps without overstepping
- Focus on data, reasoning, and relevance; avoid fluff or opinion unless requested

---
Persona: Lepton, small, subtle, and scientifically sharp.`

// HomeEnv overrides the config directory.
const HomeEnv = "LLM_MANAGER_HOME"

// Config holds the application configuration.
type Config struct {
	OpenAIAPIKey       string
	AnthropicAPIKey    string
	GoogleAPIKey       string
	DeepSeekAPIKey     string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	OllamaBaseURL      string

	DefaultProvider string
	DefaultModel    string
	SystemPrompt    string
	Retry           RetryConfig
	RateLimit       RateLimitConfig
	Pricing         adapter.PricingTable
	Reflection      ReflectionConfig
	ConfigDir       string
}

// FileConfig represents the structure of ~/.llm-manager/config.yaml.
// Secrets are never read from it.
type FileConfig struct {
	DefaultProvider string               `yaml:"default_provider"`
	DefaultModel    string               `yaml:"default_model"`
	SystemPrompt    string               `yaml:"system_prompt"`
	Retry           RetryConfig          `yaml:"retry,omitempty"`
	RateLimit       RateLimitConfig      `yaml:"rate_limit,omitempty"`
	Pricing         adapter.PricingTable `yaml:"pricing,omitempty"`
	Reflection      ReflectionConfig     `yaml:"reflection,omitempty"`
}

// RetryConfig defines retry and backoff behavior.
type RetryConfig struct {
	MaxRetries    *int `yaml:"max_retries,omitempty"`
	BaseBackoffMs int  `yaml:"base_backoff_ms,omitempty"`
	MaxBackoffMs  int  `yaml:"max_backoff_ms,omitempty"`
}

// RateLimitConfig caps generation calls per period. Zero disables it.
type RateLimitConfig struct {
	Calls         int `yaml:"calls,omitempty"`
	PeriodSeconds int `yaml:"period_seconds,omitempty"`
}

// Period returns the window as a duration.
func (r RateLimitConfig) Period() time.Duration {
	return time.Duration(r.PeriodSeconds) * time.Second
}

// ReflectionConfig holds defaults for the reflect command.
type ReflectionConfig struct {
	Strategy   string `yaml:"strategy,omitempty"`
	Iterations *int   `yaml:"iterations,omitempty"`
}

// Load reads ~/.llm-manager/config.yaml (or $LLM_MANAGER_HOME/config.yaml)
// after loading the nearest .env file. A missing file yields defaults.
func Load() (*Config, error) {
	LoadDotEnv()

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig, err := loadFileConfig(filepath.Join(configDir, "config.yaml"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return build(fileConfig, configDir), nil
}

// LoadFile reads configuration from an explicit path. Unlike Load, a
// missing file is an error.
func LoadFile(path string) (*Config, error) {
	LoadDotEnv()

	fileConfig, err := loadFileConfig(path)
	if err != nil {
		return nil, err
	}
	return build(fileConfig, filepath.Dir(path)), nil
}

func build(fileConfig *FileConfig, configDir string) *Config {
	cfg := &Config{
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		GoogleAPIKey:       os.Getenv("GOOGLE_API_KEY"),
		DeepSeekAPIKey:     os.Getenv("DEEPSEEK_API_KEY"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          getEnvOrDefault("AWS_REGION", "us-east-1"),
		OllamaBaseURL:      getEnvOrDefault("OLLAMA_BASE_URL", "http://localhost:11434/v1"),

		DefaultProvider: getEnvOrDefault("LLM_MANAGER_PROVIDER", fileConfig.DefaultProvider),
		DefaultModel:    getEnvOrDefault("LLM_MANAGER_MODEL", fileConfig.DefaultModel),
		SystemPrompt:    fileConfig.SystemPrompt,
		Retry:           fileConfig.Retry,
		RateLimit:       fileConfig.RateLimit,
		Pricing:         fileConfig.Pricing,
		Reflection:      fileConfig.Reflection,
		ConfigDir:       configDir,
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = "ollama"
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Retry.MaxRetries == nil {
		n := 2
		cfg.Retry.MaxRetries = &n
	}
	if cfg.Retry.BaseBackoffMs == 0 {
		cfg.Retry.BaseBackoffMs = 200
	}
	if cfg.Retry.MaxBackoffMs == 0 {
		cfg.Retry.MaxBackoffMs = 2000
	}
	if cfg.Reflection.Strategy == "" {
		cfg.Reflection.Strategy = "self_critique"
	}
	if cfg.Reflection.Iterations == nil {
		n := 3
		cfg.Reflection.Iterations = &n
	}
}

// RetryPolicy converts the retry settings for adapter.WithRetry.
func (c *Config) RetryPolicy() adapter.RetryPolicy {
	policy := adapter.DefaultRetryPolicy()
	if c.Retry.MaxRetries != nil {
		policy.MaxRetries = *c.Retry.MaxRetries
	}
	if c.Retry.BaseBackoffMs > 0 {
		policy.BaseBackoffMs = c.Retry.BaseBackoffMs
	}
	if c.Retry.MaxBackoffMs > 0 {
		policy.MaxBackoffMs = c.Retry.MaxBackoffMs
	}
	return policy
}

// HasProvider returns true if the credentials the provider needs are set.
func (c *Config) HasProvider(name string) bool {
	switch adapter.CanonicalProvider(name) {
	case "openai":
		return c.OpenAIAPIKey != ""
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "gemini":
		return c.GoogleAPIKey != ""
	case "deepseek":
		return c.DeepSeekAPIKey != ""
	case "bedrock":
		return c.AWSRegion != ""
	case "ollama", "mock", "lorem":
		return true
	default:
		return false
	}
}

// AdapterSettings returns the construction settings for a provider.
func (c *Config) AdapterSettings(provider string) adapter.Settings {
	s := adapter.Settings{SystemPrompt: c.SystemPrompt}
	switch adapter.CanonicalProvider(provider) {
	case "openai":
		s.APIKey = c.OpenAIAPIKey
	case "anthropic":
		s.APIKey = c.AnthropicAPIKey
	case "gemini":
		s.APIKey = c.GoogleAPIKey
	case "deepseek":
		s.APIKey = c.DeepSeekAPIKey
	case "ollama":
		s.BaseURL = c.OllamaBaseURL
	case "bedrock":
		s.Region = c.AWSRegion
		s.AccessKeyID = c.AWSAccessKeyID
		s.SecretAccessKey = c.AWSSecretAccessKey
	}
	if strings.EqualFold(adapter.CanonicalProvider(provider), adapter.CanonicalProvider(c.DefaultProvider)) {
		s.DefaultModel = c.DefaultModel
	}
	return s
}

// LoadDotEnv loads the first .env file found walking up from the working
// directory. Variables already in the environment are not overridden.
// It returns the loaded path, or "" if none was found.
func LoadDotEnv() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return loadDotEnvFrom(dir)
}

func loadDotEnvFrom(dir string) string {
	for {
		envPath := filepath.Join(dir, ".env")
		if info, err := os.Stat(envPath); err == nil && !info.IsDir() {
			if err := godotenv.Load(envPath); err != nil {
				return ""
			}
			return envPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func loadFileConfig(path string) (*FileConfig, error) {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".llm-manager"), nil
}
