// Package config loads runtime configuration from an optional YAML file and
// the environment. Every setting has a default matching a local development
// setup (Ollama on :11434, tool manager on :8000), so a bare process starts
// without any configuration at all.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of an agent process. Values are read by
// viper from a config file or environment variables; environment variable
// names are the upper-cased keys (DEFAULT_MODEL, TOOL_MANAGER_URL, ...).
type Config struct {
	// DefaultModel is the model name passed to the provider.
	DefaultModel string `mapstructure:"default_model"`
	// OllamaBaseURL is the base URL of the Ollama server.
	OllamaBaseURL string `mapstructure:"ollama_base_url"`
	// ToolManagerURL is the base URL of the tool manager service.
	ToolManagerURL string `mapstructure:"tool_manager_url"`

	// ModelTimeout bounds a single completion request.
	ModelTimeout time.Duration `mapstructure:"model_timeout"`
	// ToolManagerTimeout bounds a single lookup or execution request.
	ToolManagerTimeout time.Duration `mapstructure:"tool_manager_timeout"`

	// LookupTopK is the number of tool descriptors requested per turn.
	LookupTopK int `mapstructure:"lookup_top_k"`
	// MaxToolRounds caps generate/execute round trips per process call.
	MaxToolRounds int `mapstructure:"max_tool_rounds"`
	// ContextWindowTurns is the number of history turns included in a prompt.
	ContextWindowTurns int `mapstructure:"context_window_turns"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"log_format"`
}

// Load reads configuration from the given file, or from agentbridge.yaml in
// the working directory when path is empty. A missing file is not an error;
// defaults and environment variables apply either way.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("agentbridge")
		v.SetConfigType("yaml")
	}

	v.SetDefault("default_model", "gemma3")
	v.SetDefault("ollama_base_url", "http://localhost:11434")
	v.SetDefault("tool_manager_url", "http://localhost:8000")
	v.SetDefault("model_timeout", "120s")
	v.SetDefault("tool_manager_timeout", "60s")
	v.SetDefault("lookup_top_k", 3)
	v.SetDefault("max_tool_rounds", 5)
	v.SetDefault("context_window_turns", 20)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file in the search path is fine; anything else,
		// including an explicitly named file that cannot be read, is not.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.LookupTopK < 1 {
		return fmt.Errorf("lookup_top_k must be at least 1, got %d", c.LookupTopK)
	}
	if c.MaxToolRounds < 1 {
		return fmt.Errorf("max_tool_rounds must be at least 1, got %d", c.MaxToolRounds)
	}
	if c.ContextWindowTurns < 1 {
		return fmt.Errorf("context_window_turns must be at least 1, got %d", c.ContextWindowTurns)
	}
	return nil
}
