// Package config loads and validates the Parley server configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure for Parley.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	LLM      LLMConfig      `yaml:"llm"`
	Agents   AgentsConfig   `yaml:"agents"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	HTTPPort    int    `yaml:"http_port"`
	MetricsPort int    `yaml:"metrics_port"`
}

// DatabaseConfig selects the session store backend. Backend is one of
// "memory", "sqlite", or "postgres". URL is the DSN for SQL backends.
type DatabaseConfig struct {
	Backend         string        `yaml:"backend"`
	URL             string        `yaml:"url"`
	MaxConnections  int           `yaml:"max_connections"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenExpiry   time.Duration `yaml:"token_expiry"`
	RefreshExpiry time.Duration `yaml:"refresh_expiry"`
}

type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`
	Models          map[string]ModelConfig       `yaml:"models"`
}

type LLMProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url"`
}

// ModelConfig binds a logical model key (e.g. "default", "cheap_model") to a
// provider and model identifier. Agent definitions refer to model keys, not
// raw model names.
type ModelConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type AgentsConfig struct {
	// MaxTurns bounds generation turns per run. Default: 5.
	MaxTurns int `yaml:"max_turns"`

	// TitleMaxTurns bounds turns for background title generation. Default: 3.
	TitleMaxTurns int `yaml:"title_max_turns"`

	// TitleRenaming toggles background conversation title generation.
	TitleRenaming bool `yaml:"title_renaming"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the configuration file, expanding ${VAR} references
// from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied, suitable for
// local development with the in-memory store.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9090
	}
	if cfg.Database.Backend == "" {
		cfg.Database.Backend = "memory"
	}
	if cfg.Database.MaxConnections == 0 {
		cfg.Database.MaxConnections = 25
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.Database.ConnectTimeout == 0 {
		cfg.Database.ConnectTimeout = 10 * time.Second
	}
	if cfg.Auth.TokenExpiry == 0 {
		cfg.Auth.TokenExpiry = 30 * time.Minute
	}
	if cfg.Auth.RefreshExpiry == 0 {
		cfg.Auth.RefreshExpiry = 30 * 24 * time.Hour
	}
	if cfg.LLM.DefaultProvider == "" {
		cfg.LLM.DefaultProvider = "openai"
	}
	if cfg.LLM.Models == nil {
		cfg.LLM.Models = map[string]ModelConfig{
			"default":     {Provider: cfg.LLM.DefaultProvider, Model: "gpt-4o-mini"},
			"cheap_model": {Provider: cfg.LLM.DefaultProvider, Model: "gpt-4o-mini"},
		}
	}
	if cfg.Agents.MaxTurns == 0 {
		cfg.Agents.MaxTurns = 5
	}
	if cfg.Agents.TitleMaxTurns == 0 {
		cfg.Agents.TitleMaxTurns = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks settings that have no safe fallback. The returned error
// names the offending key.
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case "memory":
	case "sqlite", "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for backend %q", c.Database.Backend)
		}
	default:
		return fmt.Errorf("database.backend %q is not one of memory, sqlite, postgres", c.Database.Backend)
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}

	for key, m := range c.LLM.Models {
		if m.Provider == "" {
			return fmt.Errorf("llm.models.%s.provider is required", key)
		}
		if m.Model == "" {
			return fmt.Errorf("llm.models.%s.model is required", key)
		}
		if _, ok := c.LLM.Providers[m.Provider]; !ok && len(c.LLM.Providers) > 0 {
			return fmt.Errorf("llm.models.%s references unknown provider %q", key, m.Provider)
		}
	}
	return nil
}
