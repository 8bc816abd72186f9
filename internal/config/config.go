package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the crmbridge.yaml project configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Dataverse DataverseConfig `yaml:"dataverse"`
	Sandbox   SandboxConfig   `yaml:"sandbox"`
	Cache     CacheConfig     `yaml:"cache"`
	Assistant AssistantConfig `yaml:"assistant"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
}

// DataverseConfig points at the live CRM organization. TokenEnv names the
// environment variable holding the bearer token; token acquisition itself
// happens outside this program.
type DataverseConfig struct {
	URL      string `yaml:"url"`
	TokenEnv string `yaml:"token_env"`
}

// SandboxConfig points at the local postgres sandbox used instead of a live
// CRM when Enabled is set.
type SandboxConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

type CacheConfig struct {
	TTL Duration `yaml:"ttl"`
}

type AssistantConfig struct {
	SessionTimeout Duration `yaml:"session_timeout"`
	SweepInterval  Duration `yaml:"sweep_interval"`
}

type DefaultsConfig struct {
	PageSize int    `yaml:"page_size"`
	OrderBy  string `yaml:"order_by"`
}

// Load reads and validates the config file, filling unset durations and
// defaults with their standard values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Token resolves the bearer token for the live connector.
func (c *Config) Token() string {
	if c.Dataverse.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.Dataverse.TokenEnv)
}

func applyDefaults(cfg *Config) {
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = Duration(time.Hour)
	}
	if cfg.Assistant.SessionTimeout <= 0 {
		cfg.Assistant.SessionTimeout = Duration(30 * time.Minute)
	}
	if cfg.Assistant.SweepInterval <= 0 {
		cfg.Assistant.SweepInterval = Duration(5 * time.Minute)
	}
	if cfg.Defaults.PageSize <= 0 {
		cfg.Defaults.PageSize = 50
	}
	if cfg.Defaults.OrderBy == "" {
		cfg.Defaults.OrderBy = "createdon desc"
	}
	if cfg.Dataverse.TokenEnv == "" {
		cfg.Dataverse.TokenEnv = "DATAVERSE_TOKEN"
	}
}

func validate(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if cfg.Sandbox.Enabled {
		if strings.TrimSpace(cfg.Sandbox.DSN) == "" {
			return fmt.Errorf("sandbox dsn is required when sandbox is enabled")
		}
		return nil
	}
	if strings.TrimSpace(cfg.Dataverse.URL) == "" {
		return fmt.Errorf("dataverse url is required")
	}
	if !strings.HasPrefix(cfg.Dataverse.URL, "https://") && !strings.HasPrefix(cfg.Dataverse.URL, "http://") {
		return fmt.Errorf("dataverse url must be http(s): %s", cfg.Dataverse.URL)
	}
	return nil
}
