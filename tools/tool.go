package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/mcp/codec"
)

// ITool is a tool for the llm agent to interact with different applications.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	Description() string
	// Parameters returns the parameters definition of the function, to be used in the prompt.
	Parameters() any

	// Call executes the tool with the given JSON arguments and returns the result as compact JSON.
	// If the tool fails to parse the input, it returns chatmodel.ErrFailedUnmarshalInput error.
	Call(context.Context, string) (string, error)
}

type Callback interface {
	OnToolStart(context.Context, ITool, string)
	OnToolEnd(context.Context, ITool, string, string)
	OnToolError(context.Context, ITool, string, error)
}

// RemoteTool is a tool served by the tool host.
type RemoteTool struct {
	name       string
	capability *Capability
	invoker    Invoker
}

var _ ITool = (*RemoteTool)(nil)

// NewRemoteTool returns the tool calling the host by name,
// the capability is nil for tools missing from the registry.
func NewRemoteTool(name string, c *Capability, inv Invoker) *RemoteTool {
	return &RemoteTool{
		name:       name,
		capability: c,
		invoker:    inv,
	}
}

// Name returns the name of the Tool.
func (t *RemoteTool) Name() string {
	return t.name
}

// Description returns the description of the tool, empty for unknown tools.
func (t *RemoteTool) Description() string {
	if t.capability == nil {
		return ""
	}
	return t.capability.Description()
}

// Parameters returns the JSON schema of the arguments, nil for unknown tools.
func (t *RemoteTool) Parameters() any {
	if t.capability == nil || t.capability.Definition.Function == nil || t.capability.Definition.Function.Parameters == nil {
		return nil
	}
	return t.capability.Definition.Function.Parameters
}

// Capability returns the registered capability, or nil
func (t *RemoteTool) Capability() *Capability {
	return t.capability
}

// Run sends the arguments to the tool host and returns the decoded result.
func (t *RemoteTool) Run(ctx context.Context, params map[string]any) (any, error) {
	if params == nil {
		params = map[string]any{}
	}
	return t.invoker.CallTool(ctx, t.name, params)
}

// Call executes the tool with the JSON arguments,
// empty arguments are sent as {}.
func (t *RemoteTool) Call(ctx context.Context, args string) (string, error) {
	params := map[string]any{}
	if args = strings.TrimSpace(args); args != "" {
		if err := json.Unmarshal([]byte(args), &params); err != nil {
			return "", chatmodel.Mark(errors.WithStack(chatmodel.ErrFailedUnmarshalInput), chatmodel.ErrDecode)
		}
	}

	result, err := t.Run(ctx, params)
	if err != nil {
		return "", err
	}
	out, err := codec.Compact(result)
	if err != nil {
		return "", chatmodel.Mark(errors.WithMessagef(err, "tool %s", t.name), chatmodel.ErrDecode)
	}
	return out, nil
}
