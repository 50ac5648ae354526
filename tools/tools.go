package tools

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/schema"
	"github.com/effective-security/mcpchat/store"
	"github.com/invopop/jsonschema"
)

//go:generate mockgen -source=tools.go -destination=../mocks/mocktools/tools_mock.gen.go -package mocktools

// Invoker calls a tool on the tool host and returns the decoded result.
type Invoker interface {
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
}

// Injector completes the raw JSON arguments of a call before it is sent.
// It returns the arguments unchanged when nothing is missing.
type Injector func(ctx context.Context, inv Invoker, cache store.DatasetCache, args string) (string, error)

// DatasetOf extracts the dataset carried by a tool result,
// returns false if the result has none.
type DatasetOf func(result any) (store.Dataset, bool)

// Capability describes a tool exposed to the model
type Capability struct {
	// Definition is sent to the model
	Definition llms.Tool
	// Returns is the declared shape of the result, sent with the definition
	Returns *jsonschema.Schema
	// Injector is optional
	Injector Injector
	// DatasetOf is optional, set for bulk-fetch tools
	DatasetOf DatasetOf
}

// Name returns the function name of the tool
func (c *Capability) Name() string {
	if c.Definition.Function == nil {
		return ""
	}
	return c.Definition.Function.Name
}

// Description returns the function description of the tool
func (c *Capability) Description() string {
	if c.Definition.Function == nil {
		return ""
	}
	return c.Definition.Function.Description
}

// Tool returns the definition sent to the model with the declared result shape
func (c *Capability) Tool() llms.Tool {
	t := c.Definition
	if c.Returns != nil && t.Function != nil {
		fn := *t.Function
		fn.Returns = c.Returns
		t.Function = &fn
	}
	return t
}

// NewCapability returns a capability for function with parameters reflected from I
func NewCapability[I any](name, description string) (*Capability, error) {
	s, err := schema.For[I]()
	if err != nil {
		return nil, errors.WithMessagef(err, "tool %s", name)
	}
	return &Capability{
		Definition: llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        name,
				Description: description,
				Parameters:  s.Parameters,
			},
		},
	}, nil
}

// Registry is the capability table keyed by tool name,
// it preserves the registration order.
type Registry struct {
	list   []*Capability
	byName map[string]*Capability
}

// NewRegistry returns a registry with the capabilities
func NewRegistry(caps ...*Capability) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*Capability),
	}
	for _, c := range caps {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds the capability
func (r *Registry) Register(c *Capability) error {
	name := c.Name()
	if name == "" {
		return errors.New("tool name is required")
	}
	if _, ok := r.byName[name]; ok {
		return errors.Newf("tool already registered: %s", name)
	}
	r.byName[name] = c
	r.list = append(r.list, c)
	return nil
}

// Get returns the capability by name
func (r *Registry) Get(name string) (*Capability, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Names returns the tool names in registration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.list))
	for _, c := range r.list {
		names = append(names, c.Name())
	}
	return names
}

// Tools returns the definitions to send to the model
func (r *Registry) Tools() []llms.Tool {
	list := make([]llms.Tool, 0, len(r.list))
	for _, c := range r.list {
		list = append(list, c.Tool())
	}
	return list
}

// Tool returns the tool calling the host by name,
// the tool has no capability when the name is not registered.
func (r *Registry) Tool(name string, inv Invoker) *RemoteTool {
	var c *Capability
	if r != nil {
		c = r.byName[name]
	}
	return NewRemoteTool(name, c, inv)
}

// Capabilities returns the registered capabilities
func (r *Registry) Capabilities() []*Capability {
	return slices.Clone(r.list)
}
