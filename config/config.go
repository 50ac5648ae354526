// Package config provides the configuration of the mcpchat application.
package config

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/assistants"
	"github.com/effective-security/mcpchat/mcp/client"
	"github.com/effective-security/mcpchat/pkg/llmfactory"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/go-playground/validator/v10"
)

// Configuration of the application
type Configuration struct {
	// LogLevel is the global log level: TRACE|DEBUG|INFO|NOTICE|WARNING|ERROR|CRITICAL
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=TRACE DEBUG INFO NOTICE WARNING ERROR CRITICAL"`
	// MCP is the connection to the tool host
	MCP client.Config `json:"mcp" yaml:"mcp"`
	// LLM is the configuration of the model providers
	LLM llmfactory.Config `json:"llm" yaml:"llm"`
	// Assistant is the configuration of the conversation loop
	Assistant AssistantConfig `json:"assistant" yaml:"assistant"`
}

// AssistantConfig specifies the conversation loop
type AssistantConfig struct {
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	// MaxToolRounds caps the tool dispatch rounds per turn, 0 for default
	MaxToolRounds int `json:"max_tool_rounds,omitempty" yaml:"max_tool_rounds,omitempty" validate:"gte=0"`
	// LLMTimeout bounds one model call, a duration like "60s"
	LLMTimeout string `json:"llm_timeout,omitempty" yaml:"llm_timeout,omitempty"`
	// Models is the list of preferred models
	Models      []string `json:"models,omitempty" yaml:"models,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"gte=0"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	Seed        *int     `json:"seed,omitempty" yaml:"seed,omitempty"`
	// ToolChoice is none|auto|required
	ToolChoice string `json:"tool_choice,omitempty" yaml:"tool_choice,omitempty" validate:"omitempty,oneof=none auto required"`
}

// GetName returns the assistant name, or the default
func (c *AssistantConfig) GetName() string {
	return values.StringsCoalesce(c.Name, assistants.DefaultName)
}

// GetLLMTimeout returns the model call timeout, or the default
func (c *AssistantConfig) GetLLMTimeout() time.Duration {
	if c.LLMTimeout == "" {
		return assistants.DefaultLLMTimeout
	}
	d, err := time.ParseDuration(c.LLMTimeout)
	if err != nil || d <= 0 {
		return assistants.DefaultLLMTimeout
	}
	return d
}

// Options returns the assistant options
func (c *AssistantConfig) Options() []assistants.Option {
	opts := []assistants.Option{
		assistants.WithName(c.Name),
		assistants.WithSystemPrompt(c.SystemPrompt),
		assistants.WithMaxToolRounds(c.MaxToolRounds),
		assistants.WithLLMTimeout(c.GetLLMTimeout()),
	}
	if c.MaxTokens > 0 {
		opts = append(opts, assistants.WithMaxTokens(c.MaxTokens))
	}
	if c.Temperature != nil {
		opts = append(opts, assistants.WithTemperature(*c.Temperature))
	}
	if c.Seed != nil {
		opts = append(opts, assistants.WithSeed(*c.Seed))
	}
	if c.ToolChoice != "" {
		opts = append(opts, assistants.WithToolChoice(c.ToolChoice))
	}
	return opts
}

// Load returns the configuration from file,
// the environment variables in the file are expanded.
// Empty file returns the default configuration.
func Load(file string) (*Configuration, error) {
	cfg := new(Configuration)
	if file != "" {
		if err := configloader.UnmarshalAndExpand(file, cfg); err != nil {
			return nil, errors.WithMessagef(err, "failed to load config %s", file)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns error if the configuration is invalid
func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.WithMessage(err, "invalid configuration")
	}
	if t := c.Assistant.LLMTimeout; t != "" {
		if d, err := time.ParseDuration(t); err != nil || d <= 0 {
			return errors.Newf("invalid configuration: assistant.llm_timeout: %q is not a positive duration", t)
		}
	}
	return nil
}
