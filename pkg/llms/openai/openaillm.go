// Package openai implements llms.Model over the OpenAI chat completions API.
package openai

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llms/openai/internal/openaiclient"
	"github.com/effective-security/x/values"
)

type ChatMessage = openaiclient.ChatMessage

var (
	ErrEmptyResponse     = errors.New("no response")
	ErrMissingToken      = errors.New("missing the OpenAI API key, set it in the OPENAI_API_KEY environment variable")
	ErrMissingAzureModel = errors.New("model needs to be provided when using Azure API")
)

const (
	RoleSystem    = "system"
	RoleAssistant = "assistant"
	RoleUser      = "user"
	RoleTool      = "tool"
)

type LLM struct {
	client *openaiclient.Client
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	_, c, err := newClient(opts...)
	if err != nil {
		return nil, err
	}
	return &LLM{
		client: c,
	}, nil
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	if openaiclient.IsAzure(o.client.Provider) {
		return llms.ProviderAzure
	}
	return llms.ProviderOpenAI
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	if o.client.Model == "" {
		return DefaultModel
	}
	return o.client.Model
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(options...)

	chatMsgs := make([]*ChatMessage, 0, len(messages))
	for _, mc := range messages {
		msg, err := chatMessageFrom(mc)
		if err != nil {
			return nil, err
		}
		chatMsgs = append(chatMsgs, msg)
	}

	req := &openaiclient.ChatRequest{
		Model:               opts.Model,
		StopWords:           opts.StopWords,
		Messages:            chatMsgs,
		Temperature:         opts.Temperature,
		N:                   opts.N,
		MaxCompletionTokens: opts.MaxTokens,
		ToolChoice:          opts.ToolChoice,
		Seed:                opts.Seed,
		Metadata:            opts.Metadata,
	}

	for _, tool := range opts.Tools {
		t, err := toolFromTool(tool)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert llms tool to openai tool")
		}
		req.Tools = append(req.Tools, t)
	}
	if len(req.Tools) == 0 {
		// tool_choice is only allowed with tools
		req.ToolChoice = nil
	}

	result, err := o.client.CreateChat(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choices[i] = &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
			GenerationInfo: map[string]any{
				llms.GenerationInfoCompletionTokens: result.Usage.CompletionTokens,
				llms.GenerationInfoPromptTokens:     result.Usage.PromptTokens,
				llms.GenerationInfoTotalTokens:      result.Usage.TotalTokens,
			},
		}

		for _, tool := range c.Message.ToolCalls {
			choices[i].ToolCalls = append(choices[i].ToolCalls, llms.ToolCall{
				ID:   tool.ID,
				Type: string(tool.Type),
				FunctionCall: &llms.FunctionCall{
					Name:      tool.Function.Name,
					Arguments: tool.Function.Arguments,
				},
			})
		}
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

func chatMessageFrom(mc llms.Message) (*ChatMessage, error) {
	msg := &ChatMessage{}
	switch mc.Role {
	case llms.RoleSystem:
		msg.Role = RoleSystem
	case llms.RoleAI:
		msg.Role = RoleAssistant
	case llms.RoleHuman:
		msg.Role = RoleUser
	case llms.RoleTool:
		msg.Role = RoleTool
		// a tool message carries exactly one ToolCallResponse
		if len(mc.Parts) != 1 {
			return nil, errors.Errorf("expected exactly one part for role %v, got %v", mc.Role, len(mc.Parts))
		}
		p, ok := mc.Parts[0].(llms.ToolCallResponse)
		if !ok {
			return nil, errors.Errorf("expected part of type ToolCallResponse for role %v, got %T", mc.Role, mc.Parts[0])
		}
		msg.ToolCallID = p.ToolCallID
		msg.Name = p.Name
		msg.Content = p.Content
		return msg, nil
	default:
		return nil, errors.Wrapf(llms.ErrUnexpectedRole, "role %v not supported", mc.Role)
	}

	msg.Content = mc.Text()
	msg.ToolCalls = toolCallsFromToolCalls(mc.ToolCalls())
	return msg, nil
}

// toolFromTool converts an llms.Tool to a Tool.
func toolFromTool(t llms.Tool) (openaiclient.Tool, error) {
	tool := openaiclient.Tool{
		Type: openaiclient.ToolType(t.Type),
	}
	switch t.Type {
	case string(openaiclient.ToolTypeFunction):
		if t.Function == nil {
			return openaiclient.Tool{}, errors.New("function definition is missing")
		}
		tool.Function = openaiclient.FunctionDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
			Returns:     t.Function.Returns,
			Strict:      t.Function.Strict,
		}
	default:
		return openaiclient.Tool{}, errors.Errorf("tool type %v not supported", t.Type)
	}
	return tool, nil
}

// toolCallsFromToolCalls converts a slice of llms.ToolCall to a slice of ToolCall.
func toolCallsFromToolCalls(tcs []llms.ToolCall) []openaiclient.ToolCall {
	if len(tcs) == 0 {
		return nil
	}
	toolCalls := make([]openaiclient.ToolCall, len(tcs))
	for i, tc := range tcs {
		toolCalls[i] = openaiclient.ToolCall{
			ID:   tc.ID,
			Type: openaiclient.ToolType(values.StringsCoalesce(tc.Type, string(openaiclient.ToolTypeFunction))),
		}
		if tc.FunctionCall != nil {
			toolCalls[i].Function = openaiclient.ToolFunction{
				Name:      tc.FunctionCall.Name,
				Arguments: tc.FunctionCall.Arguments,
			}
		}
	}
	return toolCalls
}
