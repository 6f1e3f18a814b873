// Package tools provides the function registry consulted by run
// processing: named, schema-validated callables the agent can invoke
// mid-run.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/concierge/pkg/models"
)

// Tool is a named callable the agent can invoke.
type Tool interface {
	// Name returns the tool name used for function calling.
	Name() string

	// Description returns a natural language description of what the
	// tool does.
	Description() string

	// Schema returns the JSON Schema for the tool's parameters.
	Schema() json.RawMessage

	// Execute runs the tool with validated JSON parameters. The tenant
	// on whose behalf the call runs is available via
	// observability.GetTenantID(ctx).
	Execute(ctx context.Context, params json.RawMessage) (*Result, error)
}

// Result contains the output of a tool execution. Content is a
// JSON-serializable payload; IsError marks a handler-level failure that
// should be forwarded to the model rather than aborting the batch.
type Result struct {
	Content string
	IsError bool
}

// Descriptor describes a registered tool for agent creation.
type Descriptor struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

type registered struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry holds named tools with thread-safe registration and dispatch.
// Registering a name twice overwrites the prior registration.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registered
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*registered)}
}

// Register adds a tool, compiling its parameter schema. A prior
// registration under the same name is replaced. Returns an error if the
// schema does not compile; the prior registration is left in place.
func (r *Registry) Register(tool Tool) error {
	if tool == nil || tool.Name() == "" {
		return fmt.Errorf("tool name is required")
	}
	schema, err := jsonschema.CompileString(tool.Name()+".schema.json", string(tool.Schema()))
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", tool.Name(), err)
	}

	r.mu.Lock()
	r.tools[tool.Name()] = &registered{tool: tool, schema: schema}
	r.mu.Unlock()
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return reg.tool, true
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns descriptors for all registered tools in name order,
// for passing to agent creation.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descs := make([]Descriptor, 0, len(r.tools))
	for _, reg := range r.tools {
		descs = append(descs, Descriptor{
			Name:        reg.tool.Name(),
			Description: reg.tool.Description(),
			Parameters:  reg.tool.Schema(),
		})
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs
}

// Dispatch validates args against the tool's parameter schema and invokes
// it. Returns a NOT_FOUND error for an unregistered name and a
// VALIDATION_ERROR if args do not conform to the schema. Handler-level
// failures come back as a Result with IsError set, or as a plain error,
// and never abort sibling dispatches: the caller converts them to
// structured error outputs.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (*Result, error) {
	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, models.ErrNotFound(fmt.Sprintf("tool %s", name), nil)
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	var decoded any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return nil, models.ErrValidation(fmt.Sprintf("tool %s arguments are not valid JSON", name), err)
	}
	if err := reg.schema.Validate(decoded); err != nil {
		return nil, models.ErrValidation(fmt.Sprintf("tool %s arguments", name), err)
	}

	return reg.tool.Execute(ctx, args)
}

// Func adapts a plain function into a Tool.
type Func struct {
	ToolName        string
	ToolDescription string
	ToolSchema      json.RawMessage
	Handler         func(ctx context.Context, params json.RawMessage) (*Result, error)
}

// Name returns the tool name.
func (f *Func) Name() string { return f.ToolName }

// Description returns the tool description.
func (f *Func) Description() string { return f.ToolDescription }

// Schema returns the parameter schema.
func (f *Func) Schema() json.RawMessage { return f.ToolSchema }

// Execute invokes the wrapped handler.
func (f *Func) Execute(ctx context.Context, params json.RawMessage) (*Result, error) {
	return f.Handler(ctx, params)
}
