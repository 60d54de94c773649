// Package config loads the process-wide configuration from a YAML file.
// All components receive their settings at construction; nothing reads this
// package after startup.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv overrides provider.api_key so the secret can stay out of the
// config file.
const APIKeyEnv = "DBANALYST_API_KEY"

type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Database DatabaseConfig `yaml:"database"`
	Agent    AgentConfig    `yaml:"agent"`
	Server   ServerConfig   `yaml:"server"`
}

// ProviderConfig selects the language-model endpoint. BaseURL is optional
// and allows OpenAI-compatible providers.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type DatabaseConfig struct {
	Path  string      `yaml:"path"`
	Notes SchemaNotes `yaml:"schema_notes"`
}

// SchemaNotes is the human-authored context merged into the introspected
// schema text: table purposes and join-relationship hints.
type SchemaNotes struct {
	Purposes map[string]string   `yaml:"purposes"`
	Joins    map[string][]string `yaml:"joins"`
}

type AgentConfig struct {
	MaxRetries   int `yaml:"max_retries"`
	MaxPlanSteps int `yaml:"max_plan_steps"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

func defaults() Config {
	return Config{
		Agent:  AgentConfig{MaxRetries: 3, MaxPlanSteps: 5},
		Server: ServerConfig{Port: 8000},
	}
}

// Load reads the YAML file at path, applies environment overrides, and
// validates that everything required to start is present.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.Provider.APIKey = key
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key is required (or set %s)", APIKeyEnv)
	}
	if c.Provider.Model == "" {
		return errors.New("provider.model is required")
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Agent.MaxRetries < 1 {
		return errors.New("agent.max_retries must be at least 1")
	}
	if c.Agent.MaxPlanSteps < 1 {
		return errors.New("agent.max_plan_steps must be at least 1")
	}
	return nil
}
