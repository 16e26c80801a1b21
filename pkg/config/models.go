package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/drimal/llm-manager/pkg/adapter"
)

// ModelRegistry maps model IDs to a provider, provider model name and
// default generation params. It is loaded from models.yaml.
type ModelRegistry struct {
	Providers map[string]ProviderEntry `yaml:"providers"`
	Models    map[string]ModelEntry    `yaml:"models"`
}

// ProviderEntry maps generation params to environment variables.
type ProviderEntry struct {
	EnvVars map[string]string `yaml:"env_vars"`
}

// ModelEntry describes one registry model.
type ModelEntry struct {
	Provider  string         `yaml:"provider"`
	ModelName string         `yaml:"model_name"`
	Params    map[string]any `yaml:"params,omitempty"`
	Tags      []string       `yaml:"tags,omitempty"`
}

// LoadModelRegistry reads a registry from a YAML file.
func LoadModelRegistry(path string) (*ModelRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var reg ModelRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse model registry %s: %w", path, err)
	}

	if reg.Providers == nil {
		reg.Providers = make(map[string]ProviderEntry)
	}
	if reg.Models == nil {
		reg.Models = make(map[string]ModelEntry)
	}
	for id, entry := range reg.Models {
		if entry.Provider == "" || entry.ModelName == "" {
			return nil, fmt.Errorf("model %q: provider and model_name are required", id)
		}
	}
	return &reg, nil
}

// LoadModelRegistryWithFallback loads models.yaml from the config dir,
// falling back to defaultPath. An empty registry is returned when neither
// exists.
func LoadModelRegistryWithFallback(defaultPath string) (*ModelRegistry, error) {
	if configDir, err := getConfigDir(); err == nil {
		userPath := filepath.Join(configDir, "models.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return LoadModelRegistry(userPath)
		}
	}

	if defaultPath != "" {
		if _, err := os.Stat(defaultPath); err == nil {
			return LoadModelRegistry(defaultPath)
		}
	}

	return &ModelRegistry{
		Providers: make(map[string]ProviderEntry),
		Models:    make(map[string]ModelEntry),
	}, nil
}

// Get returns the entry for a model ID.
func (r *ModelRegistry) Get(id string) (ModelEntry, bool) {
	if r == nil || r.Models == nil {
		return ModelEntry{}, false
	}
	entry, ok := r.Models[id]
	return entry, ok
}

// List returns all model IDs, sorted.
func (r *ModelRegistry) List() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.Models))
	for id := range r.Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ByTag returns the sorted IDs of models carrying tag.
func (r *ModelRegistry) ByTag(tag string) []string {
	var ids []string
	for _, id := range r.List() {
		for _, t := range r.Models[id].Tags {
			if t == tag {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}

// ResolvedModel is a registry entry made ready for use.
type ResolvedModel struct {
	ID       string
	Provider string
	Options  adapter.Options
	// Settings holds provider settings read through env_vars, keyed by
	// param name (api_key, base_url, region, ...).
	Settings map[string]string
}

// Configure resolves a model ID into its provider, generation options and
// any provider settings mapped from environment variables.
func (r *ModelRegistry) Configure(id string) (*ResolvedModel, error) {
	entry, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", id)
	}

	settings := make(map[string]string)
	if provider, ok := r.Providers[entry.Provider]; ok {
		for paramKey, envKey := range provider.EnvVars {
			if value := os.Getenv(envKey); value != "" {
				settings[paramKey] = value
			}
		}
	}

	opts, err := adapter.OptionsFromMap(entry.Params)
	if err != nil {
		return nil, fmt.Errorf("model %s params: %w", id, err)
	}
	opts.Model = entry.ModelName
	return &ResolvedModel{ID: id, Provider: entry.Provider, Options: opts, Settings: settings}, nil
}

// Apply overlays the resolved settings onto s.
func (m *ResolvedModel) Apply(s adapter.Settings) adapter.Settings {
	for key, value := range m.Settings {
		switch key {
		case "api_key":
			s.APIKey = value
		case "base_url":
			s.BaseURL = value
		case "region", "region_name":
			s.Region = value
		case "aws_access_key_id":
			s.AccessKeyID = value
		case "aws_secret_access_key":
			s.SecretAccessKey = value
		case "system_prompt":
			s.SystemPrompt = value
		}
	}
	if s.DefaultModel == "" {
		s.DefaultModel = m.Options.Model
	}
	return s
}
