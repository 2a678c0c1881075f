package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tailored-agentic-units/studyplan/core/protocol"
)

// Handler is the function signature for tool implementations.
// Handlers receive the request context and JSON-encoded arguments from the model.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Result is the tool execution output that feeds back into the next model turn.
// IsError signals to the model that the tool invocation failed; Content then
// carries the explanation.
type Result struct {
	Content string
	IsError bool
}

// Success reports whether the result carries a usable payload.
func (r Result) Success() bool {
	return !r.IsError
}

// Failure builds a failed Result with a formatted explanation.
func Failure(format string, args ...any) Result {
	return Result{Content: fmt.Sprintf(format, args...), IsError: true}
}

type entry struct {
	tool    protocol.Tool
	handler Handler
}

// Registry holds tool definitions and their handlers.
// Thread-safe for concurrent registration and execution.
type Registry struct {
	entries map[string]entry
	mu      sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a new tool.
// Returns ErrAlreadyExists if a tool with the same name is already registered.
// Use Replace to update an existing tool's handler.
func (r *Registry) Register(tool protocol.Tool, handler Handler) error {
	if tool.Name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, tool.Name)
	}

	r.entries[tool.Name] = entry{tool: tool, handler: handler}
	return nil
}

// Replace updates an existing tool's definition and handler.
// Returns ErrNotFound if no tool with the given name is registered.
func (r *Registry) Replace(tool protocol.Tool, handler Handler) error {
	if tool.Name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tool.Name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, tool.Name)
	}

	r.entries[tool.Name] = entry{tool: tool, handler: handler}
	return nil
}

// Unregister removes a tool. Stages that name it degrade on their next run.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(r.entries, name)
	return nil
}

// Get retrieves a handler by tool name.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	if !exists {
		return nil, false
	}
	return e.handler, true
}

// List returns the definitions of all registered tools, sorted by name.
func (r *Registry) List() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]protocol.Tool, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e.tool)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Definitions returns the definitions of the named tools in the order given.
// Returns ErrNotFound for the first name that is not registered.
func (r *Registry) Definitions(names ...string) ([]protocol.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]protocol.Tool, 0, len(names))
	for _, name := range names {
		e, exists := r.entries[name]
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		defs = append(defs, e.tool)
	}
	return defs, nil
}

// Execute dispatches a tool call to the registered handler by name.
// Returns ErrNotFound if the tool is not registered.
// Handler errors are wrapped with the tool name for context.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	r.mu.RLock()
	e, exists := r.entries[name]
	r.mu.RUnlock()

	if !exists {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	result, err := e.handler(ctx, args)
	if err != nil {
		return Result{}, fmt.Errorf("tool %s execution failed: %w", name, err)
	}

	return result, nil
}

// Invoke runs a tool and folds every failure into the Result.
// Unknown tools, handler errors, handler panics and empty output all come
// back as IsError results with a readable explanation, so the calling stage
// can reason about the failure instead of aborting.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Failure("tool %s failed: %v", name, rec)
		}
	}()

	res, err := r.Execute(ctx, name, args)
	if err != nil {
		return Result{Content: err.Error(), IsError: true}
	}
	if strings.TrimSpace(res.Content) == "" {
		if res.IsError {
			return Failure("tool %s failed", name)
		}
		return Failure("%s returned no content", name)
	}
	return res
}

var register = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return register
}

// Register adds a new tool to the default registry.
func Register(tool protocol.Tool, handler Handler) error {
	return register.Register(tool, handler)
}

// Replace updates a tool in the default registry.
func Replace(tool protocol.Tool, handler Handler) error {
	return register.Replace(tool, handler)
}

// Get retrieves a handler from the default registry.
func Get(name string) (Handler, bool) {
	return register.Get(name)
}

// List returns all tool definitions in the default registry.
func List() []protocol.Tool {
	return register.List()
}

// Execute dispatches a tool call through the default registry.
func Execute(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	return register.Execute(ctx, name, args)
}

// Invoke runs a tool from the default registry without ever returning an error.
func Invoke(ctx context.Context, name string, args json.RawMessage) Result {
	return register.Invoke(ctx, name, args)
}
