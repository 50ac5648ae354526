package assistants

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/mcp/codec"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llmutils"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/mcpchat/store"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

// Assistant answers a user message by asking the model,
// dispatching the tool calls it requests and feeding the results back,
// until the model replies with text.
type Assistant struct {
	LLM      llms.Model
	Invoker  tools.Invoker
	Registry *tools.Registry

	cfg         *Config
	llmToolDefs []llms.Tool
}

var _ IAssistant = (*Assistant)(nil)

// ToolCallRecord describes a dispatched tool call
type ToolCallRecord struct {
	ID   string
	Name string
	// Arguments sent to the tool host, after injection
	Arguments string
	// Injected is true when the arguments were completed by the injector
	Injected bool
	// Output is the compact JSON of the result
	Output string
}

// Result of one invocation
type Result struct {
	// Answer is the final text of the model
	Answer string
	// Rounds is the number of tool dispatch rounds
	Rounds    int
	ToolCalls []ToolCallRecord
	// Messages is the conversation of the invocation
	Messages []llms.Message
}

// NewAssistant returns the assistant with the model, the tool host and the capability table.
// Registry can be nil, then no tools are offered to the model.
// Tools are not offered when the provider does not support function calling.
func NewAssistant(model llms.Model, inv tools.Invoker, registry *tools.Registry, options ...Option) *Assistant {
	a := &Assistant{
		LLM:      model,
		Invoker:  inv,
		Registry: registry,
		cfg:      NewConfig(options...),
	}
	if registry != nil {
		if pt := model.GetProviderType(); pt.Supports(llms.CapabilityFunctionCalling) {
			a.llmToolDefs = registry.Tools()
		} else {
			logger.KV(xlog.WARNING,
				"assistant", a.Name(),
				"status", "function_calling_not_supported",
				"provider", pt,
			)
		}
	}
	return a
}

// Name returns the name of the Assistant.
func (a *Assistant) Name() string {
	return a.cfg.Name
}

// Description returns the description of the Assistant.
func (a *Assistant) Description() string {
	return "Conversational assistant with Notion tools served by the MCP host."
}

// Config returns the configuration of the Assistant.
func (a *Assistant) Config() *Config {
	return a.cfg
}

// Chat returns the answer for the user message,
// or the message describing the failure.
func (a *Assistant) Chat(ctx context.Context, input string) string {
	res, err := a.Run(ctx, input)
	if err != nil {
		return chatmodel.UserMessage(err)
	}
	return res.Answer
}

// Run executes one invocation for the user message.
func (a *Assistant) Run(ctx context.Context, input string) (*Result, error) {
	ctx, chatCtx := chatmodel.EnsureChatContext(ctx)

	cfg := a.cfg
	assistantName := a.Name()
	started := time.Now()
	defer metricskey.PerfAssistantCall.MeasureSince(started, assistantName)

	if cfg.CallbackHandler != nil {
		cfg.CallbackHandler.OnAssistantStart(ctx, a, input)
	}

	res, err := a.run(ctx, input)
	if err != nil {
		metricskey.StatsAssistantCallsFailed.IncrCounter(1, assistantName)
		logger.ContextKV(ctx, xlog.ERROR,
			"assistant", assistantName,
			"chat_id", chatCtx.GetChatID(),
			"kind", chatmodel.Kind(err),
			"err", err.Error(),
		)
		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnAssistantError(ctx, a, input, err)
		}
		return nil, err
	}

	metricskey.StatsAssistantCallsSucceeded.IncrCounter(1, assistantName)
	logger.ContextKV(ctx, xlog.DEBUG,
		"assistant", assistantName,
		"chat_id", chatCtx.GetChatID(),
		"rounds", res.Rounds,
		"tool_calls", len(res.ToolCalls),
		"elapsed", time.Since(started).String(),
	)
	if cfg.CallbackHandler != nil {
		cfg.CallbackHandler.OnAssistantEnd(ctx, a, input, res)
	}
	return res, nil
}

func (a *Assistant) run(ctx context.Context, input string) (*Result, error) {
	cfg := a.cfg
	assistantName := a.Name()
	modelName := values.StringsCoalesce(cfg.Model, a.LLM.GetName())
	callOpts := cfg.GetCallOptions(a.llmToolDefs)

	// the cache lives for one invocation only
	cache := store.NewMemoryCache()

	res := &Result{
		Messages: []llms.Message{
			llms.MessageFromTextParts(llms.RoleSystem, cfg.SystemPrompt),
			llms.MessageFromTextParts(llms.RoleHuman, input),
		},
	}

	for {
		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnLLMCallStart(ctx, a, res.Messages)
		}
		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(res.Messages)), assistantName, modelName)
		logger.ContextKV(ctx, xlog.DEBUG,
			"assistant", assistantName,
			"status", "llm_call",
			"round", res.Rounds,
			"messages", len(res.Messages),
			"content_size", llmutils.CountMessagesContentSize(res.Messages),
		)

		resp, err := a.generate(ctx, res.Messages, callOpts)
		if err != nil {
			return res, err
		}
		if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
			return res, chatmodel.Mark(errors.Newf("assistant %s: model returned no choices", assistantName), chatmodel.ErrLLM)
		}

		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnLLMCallEnd(ctx, a, resp)
		}

		tokensIn, tokensOut, tokensTotal := llms.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), assistantName, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), assistantName, modelName)
		metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), assistantName, modelName)

		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			res.Answer = choice.Content
			res.Messages = append(res.Messages, llms.MessageFromTextParts(llms.RoleAI, choice.Content))
			return res, nil
		}

		if res.Rounds >= cfg.MaxToolRounds {
			return res, chatmodel.Mark(
				errors.Newf("assistant %s: the model requested tools after %d rounds", assistantName, res.Rounds),
				chatmodel.ErrMaxToolRounds)
		}

		for i, tc := range choice.ToolCalls {
			if err = a.dispatch(ctx, cache, res, i, tc); err != nil {
				return res, err
			}
		}
		res.Rounds++
		metricskey.StatsAssistantToolRounds.IncrCounter(1, assistantName)
	}
}

// generate calls the model bounded by LLMTimeout,
// a timeout is returned as chatmodel.ErrTransport.
func (a *Assistant) generate(ctx context.Context, messages []llms.Message, opts []llms.CallOption) (*llms.ContentResponse, error) {
	timeout := a.cfg.LLMTimeout
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := a.LLM.GenerateContent(callCtx, messages, opts...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, chatmodel.Mark(errors.WithMessagef(err, "model call timed out after %s", timeout), chatmodel.ErrTransport)
		}
		return nil, chatmodel.Mark(errors.WithMessage(err, "failed to generate content"), chatmodel.ErrLLM)
	}
	return resp, nil
}

// dispatch runs one tool call and appends the request
// and the response to the conversation.
func (a *Assistant) dispatch(ctx context.Context, cache store.DatasetCache, res *Result, index int, tc llms.ToolCall) error {
	cfg := a.cfg
	if tc.FunctionCall == nil {
		return chatmodel.Mark(errors.Newf("tool call %q has no function", tc.ID), chatmodel.ErrDecode)
	}

	toolName := tc.FunctionCall.Name
	if tc.ID == "" {
		tc.ID = fmt.Sprintf("%s_%d", toolName, index)
	}
	tc.Type = values.StringsCoalesce(tc.Type, "function")

	args, err := NormalizeArguments(tc.FunctionCall.Arguments)
	if err != nil {
		return errors.WithMessagef(err, "tool %s", toolName)
	}

	record := ToolCallRecord{
		ID:   tc.ID,
		Name: toolName,
	}

	tool := a.Registry.Tool(toolName, a.Invoker)
	capability := tool.Capability()
	found := capability != nil
	if !found {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
		logger.ContextKV(ctx, xlog.WARNING,
			"assistant", a.Name(),
			"status", "tool_not_found",
			"tool", toolName,
		)
	}

	if found && capability.Injector != nil {
		injected, err := capability.Injector(ctx, a.Invoker, cache, args)
		if err != nil {
			// returned as is, the message is shown to the user
			return err
		}
		record.Injected = injected != args
		args = injected
	}
	record.Arguments = args

	var params map[string]any
	if err = json.Unmarshal([]byte(args), &params); err != nil {
		return chatmodel.Mark(errors.Wrapf(err, "tool %s: failed to parse arguments", toolName), chatmodel.ErrDecode)
	}

	if cfg.CallbackHandler != nil {
		cfg.CallbackHandler.OnToolStart(ctx, tool, args)
	}

	started := time.Now()
	result, err := tool.Run(ctx, params)
	metricskey.PerfToolCall.MeasureSince(started, toolName)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnToolError(ctx, tool, args, err)
		}
		return err
	}
	metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)

	if found && capability.DatasetOf != nil {
		if ds, ok := capability.DatasetOf(result); ok {
			cache.Set(ds)
			logger.ContextKV(ctx, xlog.DEBUG,
				"assistant", a.Name(),
				"status", "dataset_cached",
				"tool", toolName,
				"items", len(ds),
			)
		}
	}

	content, err := codec.Compact(result)
	if err != nil {
		return chatmodel.Mark(errors.WithMessagef(err, "tool %s", toolName), chatmodel.ErrDecode)
	}
	record.Output = content

	if cfg.CallbackHandler != nil {
		cfg.CallbackHandler.OnToolEnd(ctx, tool, args, content)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"assistant", a.Name(),
		"status", "tool_call_response",
		"tool_call_id", tc.ID,
		"tool", toolName,
		"injected", record.Injected,
		"content", slices.StringUpto(content, 256),
	)

	tc.FunctionCall = &llms.FunctionCall{Name: toolName, Arguments: args}
	res.Messages = append(res.Messages,
		llms.MessageFromToolCalls(llms.RoleAI, tc),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: tc.ID,
			Name:       toolName,
			Content:    content,
		}),
	)
	res.ToolCalls = append(res.ToolCalls, record)
	return nil
}

// NormalizeArguments parses the arguments produced by the model
// and returns them as a compact JSON object.
// Empty arguments are returned as {}.
func NormalizeArguments(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "{}", nil
	}

	var parsed map[string]any
	if err := ljson.Unmarshal(llmutils.CleanJSON([]byte(raw)), &parsed); err != nil {
		return "", chatmodel.Mark(errors.Wrap(err, "failed to parse arguments"), chatmodel.ErrDecode)
	}
	if parsed == nil {
		parsed = map[string]any{}
	}
	args, err := codec.Compact(parsed)
	if err != nil {
		return "", chatmodel.Mark(err, chatmodel.ErrDecode)
	}
	return args, nil
}
