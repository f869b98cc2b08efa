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
	DefaultPort           = 3456
	DefaultHost           = "127.0.0.1"
	DefaultConfigFilename = "config.json"
	DefaultYAMLFilename   = "config.yaml"
	DefaultTimeoutSeconds = 300
)

// Provider is one named backend. Immutable once loaded.
type Provider struct {
	Name    string   `json:"name" yaml:"name"`
	APIBase string   `json:"api_base_url" yaml:"api_base_url"`
	APIKey  string   `json:"api_key" yaml:"api_key"`
	Models  []string `json:"models" yaml:"models"`
}

// RouterConfig holds the routing policy: each value is a
// "provider,model" route string.
type RouterConfig struct {
	Default     string `json:"default" yaml:"default"`
	Think       string `json:"think,omitempty" yaml:"think,omitempty"`
	Background  string `json:"background,omitempty" yaml:"background,omitempty"`
	LongContext string `json:"longContext,omitempty" yaml:"longContext,omitempty"`
}

type Config struct {
	Host           string       `json:"HOST,omitempty" yaml:"host,omitempty"`
	Port           int          `json:"PORT,omitempty" yaml:"port,omitempty"`
	APIKey         string       `json:"APIKEY,omitempty" yaml:"api_key,omitempty"`
	ProxyURL       string       `json:"PROXY_URL,omitempty" yaml:"proxy_url,omitempty"`
	TimeoutSeconds int          `json:"TIMEOUT_SECONDS,omitempty" yaml:"timeout_seconds,omitempty"`
	Providers      []Provider   `json:"Providers" yaml:"providers"`
	Router         RouterConfig `json:"Router" yaml:"router"`
}

// Manager loads and snapshots configuration. Handlers read a consistent
// snapshot via Get; Load swaps it atomically.
type Manager struct {
	jsonPath    string
	yamlPath    string
	configValue atomic.Value
}

func NewManager(baseDir string) *Manager {
	return &Manager{
		jsonPath: filepath.Join(baseDir, DefaultConfigFilename),
		yamlPath: filepath.Join(baseDir, DefaultYAMLFilename),
	}
}

// Load reads config.json, falling back to config.yaml when the JSON file
// is absent.
func (m *Manager) Load() (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(m.jsonPath)

	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	case os.IsNotExist(err):
		ydata, yerr := os.ReadFile(m.yamlPath)
		if yerr != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(ydata, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg.applyDefaults()
	m.configValue.Store(&cfg)

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}

	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

func (m *Manager) Get() *Config {
	if v := m.configValue.Load(); v != nil {
		return v.(*Config)
	}

	cfg, err := m.Load()
	if err != nil {
		fallback := &Config{}
		fallback.applyDefaults()

		return fallback
	}

	return cfg
}

func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(m.jsonPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(m.jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	m.configValue.Store(cfg)

	return nil
}

func (m *Manager) GetPath() string {
	return m.jsonPath
}

func (m *Manager) Exists() bool {
	if _, err := os.Stat(m.jsonPath); err == nil {
		return true
	}

	_, err := os.Stat(m.yamlPath)

	return err == nil
}
