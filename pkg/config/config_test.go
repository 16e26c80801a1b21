package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/drimal/llm-manager/pkg/adapter"
)

func TestConfigIgnoresFileAPIKeys(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearProviderEnv(t)

	configDir := filepath.Join(home, ".llm-manager")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")
	data := []byte("api_keys:\n  anthropic: file-ant\n  openai: file-openai\ndefault_provider: anthropic\n")
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "" || cfg.OpenAIAPIKey != "" {
		t.Fatalf("expected file API keys to be ignored")
	}
	if cfg.DefaultProvider != "anthropic" {
		t.Fatalf("expected default provider from file, got %q", cfg.DefaultProvider)
	}
	if cfg.ConfigDir != configDir {
		t.Fatalf("unexpected config dir %q", cfg.ConfigDir)
	}
}

func TestConfigUsesEnvAPIKeys(t *testing.T) {
	home := t.TempDir()
	setHomeEnv(t, home)
	clearProviderEnv(t)

	t.Setenv("ANTHROPIC_API_KEY", "env-ant")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("GOOGLE_API_KEY", "env-google")
	t.Setenv("DEEPSEEK_API_KEY", "env-deepseek")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434/v1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnthropicAPIKey != "env-ant" || cfg.OpenAIAPIKey != "env-openai" || cfg.GoogleAPIKey != "env-google" || cfg.DeepSeekAPIKey != "env-deepseek" {
		t.Fatalf("expected env API keys to be used")
	}
	if cfg.AdapterSettings("google").APIKey != "env-google" {
		t.Fatalf("expected google alias to map to gemini key")
	}
	if cfg.AdapterSettings("bedrock").Region != "eu-west-1" {
		t.Fatalf("expected bedrock region from env")
	}
	if cfg.AdapterSettings("ollama").BaseURL != "http://ollama:11434/v1" {
		t.Fatalf("expected ollama base url from env")
	}
}

func TestConfigDefaults(t *testing.T) {
	setHomeEnv(t, t.TempDir())
	clearProviderEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultProvider != "ollama" {
		t.Fatalf("expected ollama default provider, got %q", cfg.DefaultProvider)
	}
	if cfg.SystemPrompt != DefaultSystemPrompt {
		t.Fatalf("expected default system prompt")
	}
	policy := cfg.RetryPolicy()
	if policy.MaxRetries != 2 || policy.BaseBackoffMs != 200 || policy.MaxBackoffMs != 2000 {
		t.Fatalf("unexpected retry policy: %+v", policy)
	}
	if cfg.Reflection.Strategy != "self_critique" || *cfg.Reflection.Iterations != 3 {
		t.Fatalf("unexpected reflection defaults: %+v", cfg.Reflection)
	}
	if !cfg.HasProvider("ollama") || cfg.HasProvider("openai") || cfg.HasProvider("watson") {
		t.Fatalf("unexpected provider availability")
	}
}

func TestConfigHomeOverride(t *testing.T) {
	setHomeEnv(t, t.TempDir())
	clearProviderEnv(t)

	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	data := []byte(`default_provider: openai
default_model: gpt-4o-mini
system_prompt: be terse
retry:
  max_retries: 5
rate_limit:
  calls: 10
  period_seconds: 60
pricing:
  openai:
    gpt-4o-mini:
      input_per_1k: 0.15
      output_per_1k: 0.6
reflection:
  strategy: adversarial
  iterations: 0
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultProvider != "openai" || cfg.DefaultModel != "gpt-4o-mini" || cfg.SystemPrompt != "be terse" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if *cfg.Retry.MaxRetries != 5 || cfg.Retry.BaseBackoffMs != 200 {
		t.Fatalf("expected partial retry settings to keep defaults: %+v", cfg.Retry)
	}
	if cfg.RateLimit.Calls != 10 || cfg.RateLimit.Period().Seconds() != 60 {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	if cfg.Pricing["openai"]["gpt-4o-mini"].OutputPer1K != 0.6 {
		t.Fatalf("unexpected pricing: %+v", cfg.Pricing)
	}
	if cfg.Reflection.Strategy != "adversarial" || *cfg.Reflection.Iterations != 0 {
		t.Fatalf("expected explicit zero iterations to be kept: %+v", cfg.Reflection)
	}
	settings := cfg.AdapterSettings("openai")
	if settings.DefaultModel != "gpt-4o-mini" || settings.SystemPrompt != "be terse" {
		t.Fatalf("unexpected adapter settings: %+v", settings)
	}
	if cfg.AdapterSettings("anthropic").DefaultModel != "" {
		t.Fatalf("default model must only apply to the default provider")
	}
}

func TestConfigZeroRetriesDisablesRetry(t *testing.T) {
	setHomeEnv(t, t.TempDir())
	clearProviderEnv(t)

	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("retry:\n  max_retries: 0\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	policy := cfg.RetryPolicy()
	if policy.MaxRetries != 0 {
		t.Fatalf("expected explicit zero retries to be kept, got %d", policy.MaxRetries)
	}
	if policy.BaseBackoffMs != 200 || policy.MaxBackoffMs != 2000 {
		t.Fatalf("expected default backoff, got %+v", policy)
	}

	if got := (&Config{}).RetryPolicy(); got != adapter.DefaultRetryPolicy() {
		t.Fatalf("expected zero config to use the default policy, got %+v", got)
	}
}

func TestLoadFile(t *testing.T) {
	clearProviderEnv(t)

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("retry: [oops"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadDotEnvWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte("LLM_MANAGER_TEST_KEY=from-dotenv\nLLM_MANAGER_TEST_KEEP=from-dotenv\n"), 0600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("LLM_MANAGER_TEST_KEY", "")
	os.Unsetenv("LLM_MANAGER_TEST_KEY")
	t.Setenv("LLM_MANAGER_TEST_KEEP", "from-env")

	path := loadDotEnvFrom(nested)
	if path != filepath.Join(root, ".env") {
		t.Fatalf("unexpected .env path %q", path)
	}
	if os.Getenv("LLM_MANAGER_TEST_KEY") != "from-dotenv" {
		t.Fatalf("expected value from .env")
	}
	if os.Getenv("LLM_MANAGER_TEST_KEEP") != "from-env" {
		t.Fatalf("expected existing env to win over .env")
	}
	os.Unsetenv("LLM_MANAGER_TEST_KEY")
}

func setHomeEnv(t *testing.T, home string) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv(HomeEnv, "")
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	// Load walks up from the working directory for .env; keep it inside
	// the temp home so a developer's .env cannot leak into tests.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(home); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GOOGLE_API_KEY", "DEEPSEEK_API_KEY",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_REGION", "OLLAMA_BASE_URL",
		"LLM_MANAGER_PROVIDER", "LLM_MANAGER_MODEL",
	} {
		t.Setenv(key, "")
	}
}
