package config

import "fmt"

// Config is the root sleuth configuration
type Config struct {
	Provider ProviderConfig `json:"provider" mapstructure:"provider"`
	Agent    AgentConfig    `json:"agent" mapstructure:"agent"`
	Tools    ToolsConfig    `json:"tools" mapstructure:"tools"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
	DataDir  string         `json:"data_dir" mapstructure:"data_dir"`
}

// ProviderConfig selects and authenticates the model provider
type ProviderConfig struct {
	Name   string `json:"name" mapstructure:"name"` // anthropic, openai
	APIKey string `json:"api_key" mapstructure:"api_key"`
}

// AgentConfig holds the loop's injected constants
type AgentConfig struct {
	Model                 string  `json:"model" mapstructure:"model"`
	SystemPrompt          string  `json:"system_prompt" mapstructure:"system_prompt"`
	Temperature           float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens             int     `json:"max_tokens" mapstructure:"max_tokens"`
	MaxIterations         int     `json:"max_iterations" mapstructure:"max_iterations"`
	MaxOverflowRetries    int     `json:"max_overflow_retries" mapstructure:"max_overflow_retries"`
	OverflowKeepToolUses  int     `json:"overflow_keep_tool_uses" mapstructure:"overflow_keep_tool_uses"`
	ContextTokenThreshold int     `json:"context_token_threshold" mapstructure:"context_token_threshold"`
	ThresholdKeepToolUses int     `json:"threshold_keep_tool_uses" mapstructure:"threshold_keep_tool_uses"`
	HistoryWindow         int     `json:"history_window" mapstructure:"history_window"`
}

// ToolsConfig bounds tool execution
type ToolsConfig struct {
	TimeoutSeconds int   `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	OutputLimit    int   `json:"output_limit" mapstructure:"output_limit"`
	FetchMaxBytes  int64 `json:"fetch_max_bytes" mapstructure:"fetch_max_bytes"`
}

// LoggingConfig configures the zerolog output
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns the baseline configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name: "anthropic",
		},
		Agent: AgentConfig{
			Model:                 "claude-sonnet-4-5",
			SystemPrompt:          "You are a careful research assistant. Use the available tools to gather facts before answering.",
			Temperature:           0.7,
			MaxTokens:             4096,
			MaxIterations:         10,
			MaxOverflowRetries:    2,
			OverflowKeepToolUses:  3,
			ContextTokenThreshold: 50000,
			ThresholdKeepToolUses: 5,
			HistoryWindow:         10,
		},
		Tools: ToolsConfig{
			TimeoutSeconds: 30,
			OutputLimit:    10 * 1024,
			FetchMaxBytes:  512 * 1024,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
	}
}

// Validate checks the configuration for contradictions
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider.Name)
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider api_key is required")
	}
	if c.Agent.Model == "" {
		return fmt.Errorf("agent model cannot be empty")
	}
	if c.Agent.Temperature < 0 || c.Agent.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive")
	}
	if c.Agent.MaxOverflowRetries < 0 {
		return fmt.Errorf("max_overflow_retries cannot be negative")
	}
	if c.Agent.OverflowKeepToolUses < 0 || c.Agent.ThresholdKeepToolUses < 0 {
		return fmt.Errorf("keep counts cannot be negative")
	}
	if c.Tools.TimeoutSeconds <= 0 {
		return fmt.Errorf("tools timeout_seconds must be positive")
	}
	return nil
}
