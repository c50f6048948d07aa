package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/ideaengine/internal/provider"
	"github.com/dusk-indust/ideaengine/internal/rank"
)

const (
	DefaultTimeout  = 60 * time.Second
	DefaultRetries  = 2
	DefaultDatabase = ".ideaengine/ideaengine.db"
	DefaultAddress  = "127.0.0.1:8080"
	DefaultLogLevel = "info"
	DefaultFormat   = "text"
)

// ProviderConfig configures one provider adapter.
type ProviderConfig struct {
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"baseURL,omitempty"`

	// APIKeyEnv names the environment variable holding the key. APIKey is
	// used when set and takes precedence.
	APIKeyEnv string `yaml:"apiKeyEnv,omitempty"`
	APIKey    string `yaml:"apiKey,omitempty"`

	Disabled bool `yaml:"disabled,omitempty"`
}

// ProjectConfig holds settings loaded from ideaengine.yml.
type ProjectConfig struct {
	Database   string                    `yaml:"database,omitempty"`
	Address    string                    `yaml:"address,omitempty"`
	LogLevel   string                    `yaml:"logLevel,omitempty"`
	LogFormat  string                    `yaml:"logFormat,omitempty"`
	Timeout    time.Duration             `yaml:"timeout,omitempty"`
	Retries    *int                      `yaml:"retries,omitempty"`
	Backoff    time.Duration             `yaml:"backoff,omitempty"`
	RecipesDir string                    `yaml:"recipesDir,omitempty"`
	Providers  map[string]ProviderConfig `yaml:"providers,omitempty"`
	Rubric     map[string]float64        `yaml:"rubric,omitempty"`
}

// defaultKeyEnv is used when a provider names no apiKeyEnv.
var defaultKeyEnv = map[string]string{
	provider.OpenAIID:    "OPENAI_API_KEY",
	provider.AnthropicID: "ANTHROPIC_API_KEY",
	provider.GeminiID:    "GEMINI_API_KEY",
}

// Load attempts to read ideaengine.yml or ideaengine.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"ideaengine.yml", "ideaengine.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// Defaults fills zero values in place and returns c.
func (c *ProjectConfig) Defaults() *ProjectConfig {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultFormat
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retries == nil || *c.Retries < 0 {
		n := DefaultRetries
		c.Retries = &n
	}
	if c.Backoff < 0 {
		c.Backoff = 0
	}
	return c
}

// RetryCount returns the configured retries, or the default when unset.
func (c *ProjectConfig) RetryCount() int {
	if c.Retries == nil || *c.Retries < 0 {
		return DefaultRetries
	}
	return *c.Retries
}

// DefaultRubric returns the configured rubric merged over the built-in
// weights.
func (c *ProjectConfig) DefaultRubric() (rank.Rubric, error) {
	if len(c.Rubric) == 0 {
		return rank.DefaultRubric, nil
	}
	r, err := rank.FromMap(c.Rubric)
	if err != nil {
		return rank.Rubric{}, fmt.Errorf("config rubric: %w", err)
	}
	return r, nil
}

// Resolve turns the provider section into explicit settings. It is the only
// place environment variables are read. Every known provider gets an entry
// so that adapters without a key can report a missing credential.
func (c *ProjectConfig) Resolve() map[string]provider.Settings {
	out := make(map[string]provider.Settings)
	for id, env := range defaultKeyEnv {
		out[id] = provider.Settings{APIKey: os.Getenv(env)}
	}
	for id, pc := range c.Providers {
		if pc.Disabled {
			delete(out, id)
			continue
		}
		s := provider.Settings{Model: pc.Model, BaseURL: pc.BaseURL}
		switch {
		case pc.APIKey != "":
			s.APIKey = pc.APIKey
		case pc.APIKeyEnv != "":
			s.APIKey = os.Getenv(pc.APIKeyEnv)
		default:
			if env, ok := defaultKeyEnv[id]; ok {
				s.APIKey = os.Getenv(env)
			}
		}
		out[id] = s
	}
	return out
}

// Disabled reports whether the provider is switched off in the file.
func (c *ProjectConfig) Disabled(id string) bool {
	pc, ok := c.Providers[id]
	return ok && pc.Disabled
}
