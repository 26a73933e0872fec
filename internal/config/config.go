// Package config loads dealflow configuration from a YAML file with
// environment-variable overrides for deploy-time secrets and endpoints.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all dealflow configuration.
type Config struct {
	// HTTP server settings
	Server ServerConfig `yaml:"server"`

	// Model gateway configuration
	LLM LLMConfig `yaml:"llm"`

	// Orchestration loop bounds
	Agent AgentConfig `yaml:"agent"`

	// Conversation store bounds
	Conversation ConversationConfig `yaml:"conversation"`

	// External collaborator endpoints
	Integrations IntegrationsConfig `yaml:"integrations"`

	// Customer card persistence
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the delivery adapter.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// LLMConfig configures the model gateway.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// AgentConfig bounds the orchestration loop.
type AgentConfig struct {
	MaxRounds      int    `yaml:"max_rounds"`
	ModelRetries   int    `yaml:"model_retries"`
	HistoryTurns   int    `yaml:"history_turns"`
	ToolTimeout    string `yaml:"tool_timeout"`
	IdempotencyTTL string `yaml:"idempotency_ttl"`
}

// ConversationConfig bounds the conversation store.
type ConversationConfig struct {
	MaxTurns   int    `yaml:"max_turns"`
	IdleTTL    string `yaml:"idle_ttl"`
	GCInterval string `yaml:"gc_interval"`
}

// IntegrationsConfig configures external collaborator endpoints.
type IntegrationsConfig struct {
	Calendar IntegrationEndpoint `yaml:"calendar"`
	Email    IntegrationEndpoint `yaml:"email"`
}

// IntegrationEndpoint is one collaborator's base URL and client timeout.
type IntegrationEndpoint struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// StoreConfig configures card persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     "30s",
			WriteTimeout:    "120s",
			ShutdownTimeout: "15s",
		},
		LLM: LLMConfig{
			Model:   "gemini-2.0-flash",
			Timeout: "120s",
		},
		Agent: AgentConfig{
			MaxRounds:      5,
			ModelRetries:   2,
			HistoryTurns:   40,
			ToolTimeout:    "30s",
			IdempotencyTTL: "10m",
		},
		Conversation: ConversationConfig{
			MaxTurns:   200,
			IdleTTL:    "1h",
			GCInterval: "5m",
		},
		Integrations: IntegrationsConfig{
			Calendar: IntegrationEndpoint{
				BaseURL: "http://localhost:8091",
				Timeout: "30s",
			},
			Email: IntegrationEndpoint{
				BaseURL: "http://localhost:8092",
				Timeout: "30s",
			},
		},
		Store: StoreConfig{
			DatabasePath: "data/dealflow.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults;
// environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if addr := os.Getenv("DEALFLOW_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv("DEALFLOW_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if url := os.Getenv("CALENDAR_URL"); url != "" {
		c.Integrations.Calendar.BaseURL = url
	}
	if url := os.Getenv("EMAIL_URL"); url != "" {
		c.Integrations.Email.BaseURL = url
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Agent.MaxRounds <= 0 {
		return fmt.Errorf("agent.max_rounds must be positive")
	}
	if c.Conversation.MaxTurns < 0 {
		return fmt.Errorf("conversation.max_turns cannot be negative")
	}
	if c.Store.DatabasePath == "" {
		return fmt.Errorf("store.database_path is required")
	}
	for _, d := range []struct {
		name  string
		value string
	}{
		{"llm.timeout", c.LLM.Timeout},
		{"agent.tool_timeout", c.Agent.ToolTimeout},
		{"agent.idempotency_ttl", c.Agent.IdempotencyTTL},
		{"conversation.idle_ttl", c.Conversation.IdleTTL},
		{"conversation.gc_interval", c.Conversation.GCInterval},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

func duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// GetLLMTimeout returns the model gateway timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return duration(c.LLM.Timeout, 2*time.Minute)
}

// GetToolTimeout returns the per-tool execution timeout.
func (c *Config) GetToolTimeout() time.Duration {
	return duration(c.Agent.ToolTimeout, 30*time.Second)
}

// GetIdempotencyTTL returns the mutating-result replay window.
func (c *Config) GetIdempotencyTTL() time.Duration {
	return duration(c.Agent.IdempotencyTTL, 10*time.Minute)
}

// GetIdleTTL returns the conversation idle lifetime.
func (c *Config) GetIdleTTL() time.Duration {
	return duration(c.Conversation.IdleTTL, time.Hour)
}

// GetGCInterval returns the conversation sweep interval.
func (c *Config) GetGCInterval() time.Duration {
	return duration(c.Conversation.GCInterval, 5*time.Minute)
}

// GetCalendarTimeout returns the calendar client timeout.
func (c *Config) GetCalendarTimeout() time.Duration {
	return duration(c.Integrations.Calendar.Timeout, 30*time.Second)
}

// GetEmailTimeout returns the email client timeout.
func (c *Config) GetEmailTimeout() time.Duration {
	return duration(c.Integrations.Email.Timeout, 30*time.Second)
}

// GetReadTimeout returns the HTTP read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return duration(c.Server.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout returns the HTTP write timeout.
func (c *Config) GetWriteTimeout() time.Duration {
	return duration(c.Server.WriteTimeout, 2*time.Minute)
}

// GetShutdownTimeout returns the graceful shutdown deadline.
func (c *Config) GetShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 15*time.Second)
}
