package config

import (
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/spark-go/pkg/core"
	"github.com/XiaoConstantine/spark-go/pkg/errors"
)

// Config is the engine configuration. Loading, file watching, and
// secrets decryption belong to external collaborators; this package
// owns the shape, validation, and dispatch-time snapshotting.
type Config struct {
	AI      AIConfig      `yaml:"ai" validate:"required"`
	Results ResultsConfig `yaml:"results"`
	Vault   VaultConfig   `yaml:"vault"`
}

// AIConfig names the default provider and the provider table.
type AIConfig struct {
	DefaultProvider string                         `yaml:"default_provider" validate:"required"`
	Providers       map[string]core.ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
}

// ResultsConfig controls how results are written back into documents.
type ResultsConfig struct {
	AddBlankLines bool `yaml:"add_blank_lines"`
}

// VaultConfig locates the watched document tree.
type VaultConfig struct {
	Root            string `yaml:"root"`
	AgentsDir       string `yaml:"agents_dir"`
	NearbyFileLimit int    `yaml:"nearby_file_limit" validate:"gte=0"`
}

// Manager holds the live configuration behind a coarse swap. Executions
// snapshot at dispatch time so a reload never changes an in-flight
// run's view.
type Manager struct {
	mu  sync.RWMutex
	cfg *Config
}

func NewManager(cfg *Config) *Manager {
	return &Manager{cfg: cfg}
}

// Snapshot returns a deep copy of the current configuration.
func (m *Manager) Snapshot() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.clone()
}

// Swap replaces the whole configuration.
func (m *Manager) Swap(cfg *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

// SetAPIKey injects a secret for a named provider.
func (m *Manager) SetAPIKey(provider, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.cfg.AI.Providers[provider]; ok {
		p.APIKey = key
		m.cfg.AI.Providers[provider] = p
	}
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ResourceNotFound, "failed to read config file"),
			errors.Fields{"path": path})
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, errors.ParseFailure, "failed to parse config")
	}

	applyDefaults(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "invalid configuration")
	}

	// Provider names default to their map key, and the default
	// provider must exist.
	for name, p := range cfg.AI.Providers {
		if p.Name == "" {
			p.Name = name
			cfg.AI.Providers[name] = p
		}
	}
	if _, ok := cfg.AI.Providers[cfg.AI.DefaultProvider]; !ok {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "default provider is not configured"),
			errors.Fields{"provider": cfg.AI.DefaultProvider})
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Vault.AgentsDir == "" {
		cfg.Vault.AgentsDir = "agents"
	}
	if cfg.Vault.NearbyFileLimit == 0 {
		cfg.Vault.NearbyFileLimit = 10
	}
}

func (c *Config) clone() *Config {
	out := &Config{
		AI: AIConfig{
			DefaultProvider: c.AI.DefaultProvider,
			Providers:       make(map[string]core.ProviderConfig, len(c.AI.Providers)),
		},
		Results: c.Results,
		Vault:   c.Vault,
	}
	for name, p := range c.AI.Providers {
		cp := p
		if p.Temperature != nil {
			t := *p.Temperature
			cp.Temperature = &t
		}
		if p.Options != nil {
			cp.Options = make(map[string]interface{}, len(p.Options))
			for k, v := range p.Options {
				cp.Options[k] = v
			}
		}
		if p.Endpoint != nil {
			ep := *p.Endpoint
			if p.Endpoint.Headers != nil {
				ep.Headers = make(map[string]string, len(p.Endpoint.Headers))
				for k, v := range p.Endpoint.Headers {
					ep.Headers[k] = v
				}
			}
			cp.Endpoint = &ep
		}
		out.AI.Providers[name] = cp
	}
	return out
}
