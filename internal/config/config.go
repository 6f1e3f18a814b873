// Package config loads the service configuration from a YAML file with
// environment variable expansion.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root service configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Agent     AgentConfig     `yaml:"agent"`
	WebSearch WebSearchConfig `yaml:"websearch"`
}

// LogConfig configures structured logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// OpenAIConfig configures the assistant API client.
type OpenAIConfig struct {
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// TelegramConfig configures the Telegram transport adapter.
type TelegramConfig struct {
	Token string `yaml:"token"`
}

// AgentConfig configures run processing behavior.
type AgentConfig struct {
	// MaxToolRounds bounds the number of requires-action rounds in one run.
	MaxToolRounds int `yaml:"max_tool_rounds"`

	// ToolConcurrency is the maximum number of concurrent tool dispatches
	// within one requires-action batch.
	ToolConcurrency int `yaml:"tool_concurrency"`

	// ToolTimeout is the per-call dispatch timeout.
	ToolTimeout time.Duration `yaml:"tool_timeout"`

	// PresenceInterval is the interval between typing indicators while an
	// interactive response is pending.
	PresenceInterval time.Duration `yaml:"presence_interval"`
}

// WebSearchConfig configures the web search tool.
type WebSearchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Load reads the configuration file at path, expanding ${ENV} references,
// and applies defaults.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration bytes, expanding ${ENV} references.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	cfg := &Config{}
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("parse config: expected single document")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with all defaults applied and no
// credentials set.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.Path == "" {
		c.Database.Path = "concierge.db"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o"
	}
	if c.OpenAI.PollInterval <= 0 {
		c.OpenAI.PollInterval = time.Second
	}
	if c.Agent.MaxToolRounds <= 0 {
		c.Agent.MaxToolRounds = 8
	}
	if c.Agent.ToolConcurrency <= 0 {
		c.Agent.ToolConcurrency = 4
	}
	if c.Agent.ToolTimeout <= 0 {
		c.Agent.ToolTimeout = 30 * time.Second
	}
	if c.Agent.PresenceInterval <= 0 {
		c.Agent.PresenceInterval = 5 * time.Second
	}
	if c.WebSearch.CacheTTL <= 0 {
		c.WebSearch.CacheTTL = 5 * time.Minute
	}
}

// Validate checks that required fields are present and within range.
func (c *Config) Validate() error {
	if c.Agent.MaxToolRounds < 1 {
		return fmt.Errorf("agent.max_tool_rounds must be at least 1")
	}
	if c.Agent.ToolConcurrency < 1 {
		return fmt.Errorf("agent.tool_concurrency must be at least 1")
	}
	return nil
}
