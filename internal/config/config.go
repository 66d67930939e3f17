package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort          = 11731
	DefaultHost          = "127.0.0.1"
	DefaultJSONFilename  = "config.json"
	DefaultYAMLFilename  = "config.yaml"
	DefaultOpenAIBase    = "https://zenmux.ai/api/v1"
	DefaultAnthropicBase = "https://zenmux.ai/api/anthropic"
)

// Conflict policies for the web search injector when the request already
// carries a tool with the same name.
const (
	ConflictSkip    = "skip"
	ConflictReplace = "replace"
)

type UserLocation struct {
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	City     string `json:"city,omitempty" yaml:"city,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Country  string `json:"country,omitempty" yaml:"country,omitempty"`
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

type WebSearch struct {
	Enabled        bool          `json:"enabled" yaml:"enabled"`
	MaxUses        int           `json:"max_uses,omitempty" yaml:"max_uses,omitempty"`
	AllowedDomains []string      `json:"allowed_domains,omitempty" yaml:"allowed_domains,omitempty"`
	BlockedDomains []string      `json:"blocked_domains,omitempty" yaml:"blocked_domains,omitempty"`
	UserLocation   *UserLocation `json:"user_location,omitempty" yaml:"user_location,omitempty"`
	OnConflict     string        `json:"on_conflict,omitempty" yaml:"on_conflict,omitempty"`
}

type Upstreams struct {
	OpenAI    string `json:"openai,omitempty" yaml:"openai,omitempty"`
	Anthropic string `json:"anthropic,omitempty" yaml:"anthropic,omitempty"`
}

type Config struct {
	Host      string            `json:"host,omitempty" yaml:"host,omitempty"`
	Port      int               `json:"port,omitempty" yaml:"port,omitempty"`
	APIKey    string            `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	ProxyURL  string            `json:"proxy_url,omitempty" yaml:"proxy_url,omitempty"`
	Upstreams Upstreams         `json:"upstreams,omitempty" yaml:"upstreams,omitempty"`
	ModelMap  map[string]string `json:"model_map,omitempty" yaml:"model_map,omitempty"`
	WebSearch WebSearch         `json:"web_search,omitempty" yaml:"web_search,omitempty"`
}

// Manager loads the configuration once at startup. The loaded value is
// never mutated afterward, so handlers read it without locking.
type Manager struct {
	baseDir     string
	configValue atomic.Value
}

func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

// Load reads config.yaml if present, falling back to config.json.
func (m *Manager) Load() (*Config, error) {
	var cfg Config

	yamlPath := filepath.Join(m.baseDir, DefaultYAMLFilename)
	jsonPath := filepath.Join(m.baseDir, DefaultJSONFilename)

	switch {
	case fileExists(yamlPath):
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml config: %w", err)
		}
	case fileExists(jsonPath):
		data, err := os.ReadFile(jsonPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal json config: %w", err)
		}
	default:
		return nil, fmt.Errorf("no configuration found in %s", m.baseDir)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m.configValue.Store(&cfg)

	return &cfg, nil
}

func (m *Manager) Get() *Config {
	if v := m.configValue.Load(); v != nil {
		return v.(*Config)
	}

	cfg, err := m.Load()
	if err != nil {
		fallback := &Config{}
		applyDefaults(fallback)

		return fallback
	}

	return cfg
}

func (m *Manager) Save(cfg *Config) error {
	path := filepath.Join(m.baseDir, DefaultJSONFilename)

	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	m.configValue.Store(cfg)

	return nil
}

func (m *Manager) GetPath() string {
	yamlPath := filepath.Join(m.baseDir, DefaultYAMLFilename)
	if fileExists(yamlPath) {
		return yamlPath
	}

	return filepath.Join(m.baseDir, DefaultJSONFilename)
}

func (m *Manager) Exists() bool {
	return fileExists(filepath.Join(m.baseDir, DefaultYAMLFilename)) ||
		fileExists(filepath.Join(m.baseDir, DefaultJSONFilename))
}

func (cfg *Config) Validate() error {
	switch cfg.WebSearch.OnConflict {
	case ConflictSkip, ConflictReplace:
	default:
		return fmt.Errorf("web_search.on_conflict must be %q or %q, got %q",
			ConflictSkip, ConflictReplace, cfg.WebSearch.OnConflict)
	}

	// The Anthropic API rejects requests carrying both filters.
	if len(cfg.WebSearch.AllowedDomains) > 0 && len(cfg.WebSearch.BlockedDomains) > 0 {
		return fmt.Errorf("web_search: allowed_domains and blocked_domains are mutually exclusive")
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}

	if cfg.Upstreams.OpenAI == "" {
		cfg.Upstreams.OpenAI = DefaultOpenAIBase
	}

	if cfg.Upstreams.Anthropic == "" {
		cfg.Upstreams.Anthropic = DefaultAnthropicBase
	}

	if cfg.WebSearch.OnConflict == "" {
		cfg.WebSearch.OnConflict = ConflictSkip
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
