package assistants

import (
	"time"

	"github.com/effective-security/mcpchat/pkg/llms"
)

// Option is a function that can be used to modify the behavior of the Assistant Config.
type Option func(*Config)

type Config struct {
	// Name of the assistant, used in logs and metrics
	Name string
	// SystemPrompt is the first message of every conversation
	SystemPrompt string
	// MaxToolRounds is the number of tool dispatch rounds allowed per turn
	MaxToolRounds int
	// LLMTimeout bounds one model call
	LLMTimeout time.Duration

	// Model is the model to use in an LLM call.
	Model    string
	modelSet bool

	// MaxTokens is the maximum number of tokens to generate to use in an LLM call.
	MaxTokens    int
	maxTokensSet bool

	// Temperature is the temperature for sampling to use in an LLM call, between 0 and 1.
	Temperature    float64
	temperatureSet bool

	// Seed is a seed for deterministic sampling in an LLM call.
	Seed    int
	seedSet bool

	// ToolChoice is the choice of tool to use, it can either be "none", "auto" (the default behavior),
	// or a specific tool as described in the llms.ToolChoice type.
	ToolChoice any

	// CallbackHandler is the callback handler for the Assistant
	CallbackHandler Callback
}

// NewConfig returns the config with defaults and options applied
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Name:          DefaultName,
		SystemPrompt:  DefaultSystemPrompt,
		MaxToolRounds: DefaultMaxToolRounds,
		LLMTimeout:    DefaultLLMTimeout,
		ToolChoice:    DefaultToolChoice,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithName is an option to set the name of the assistant.
func WithName(name string) Option {
	return func(o *Config) {
		if name != "" {
			o.Name = name
		}
	}
}

// WithSystemPrompt is an option to replace the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *Config) {
		if prompt != "" {
			o.SystemPrompt = prompt
		}
	}
}

// WithMaxToolRounds is an option to set the number of tool dispatch rounds allowed per turn,
// zero or negative value sets DefaultMaxToolRounds.
func WithMaxToolRounds(rounds int) Option {
	return func(o *Config) {
		if rounds <= 0 {
			rounds = DefaultMaxToolRounds
		}
		o.MaxToolRounds = rounds
	}
}

// WithLLMTimeout is an option to bound one model call,
// zero or negative value sets DefaultLLMTimeout.
func WithLLMTimeout(timeout time.Duration) Option {
	return func(o *Config) {
		if timeout <= 0 {
			timeout = DefaultLLMTimeout
		}
		o.LLMTimeout = timeout
	}
}

// WithModel is an option for LLM.Call.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
		o.modelSet = true
	}
}

// WithMaxTokens is an option for LLM.Call.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
		o.maxTokensSet = true
	}
}

// WithTemperature is an option for LLM.Call.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithSeed will add an option to use deterministic sampling for LLM.Call.
func WithSeed(seed int) Option {
	return func(o *Config) {
		o.Seed = seed
		o.seedSet = true
	}
}

// WithToolChoice is an option for LLM.Call.
func WithToolChoice(choice any) Option {
	return func(o *Config) {
		o.ToolChoice = choice
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = callbackHandler
	}
}

// GetCallOptions returns the options of LLM call with the tools
func (c *Config) GetCallOptions(tools []llms.Tool) []llms.CallOption {
	var opts []llms.CallOption
	if c.modelSet {
		opts = append(opts, llms.WithModel(c.Model))
	}
	if c.maxTokensSet {
		opts = append(opts, llms.WithMaxTokens(c.MaxTokens))
	}
	if c.temperatureSet {
		opts = append(opts, llms.WithTemperature(c.Temperature))
	}
	if c.seedSet {
		opts = append(opts, llms.WithSeed(c.Seed))
	}
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools))
		if c.ToolChoice != nil {
			opts = append(opts, llms.WithToolChoice(c.ToolChoice))
		}
	}
	return opts
}
