// Package tools declares the capabilities the model may invoke and runs
// them on request.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var (
	ErrToolNotFound    = errors.New("tool not found")
	ErrDuplicateTool   = errors.New("duplicate tool")
	ErrEmptyToolName   = errors.New("tool name must not be empty")
	ErrMissingArgument = errors.New("missing required argument")
)

// Tool is a named capability the model can call through the tool-call
// convention embedded in the prompt.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema of the arguments object.
	Parameters() json.RawMessage
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Descriptor is the prompt-facing description of a registered tool.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Registry holds tools in registration order.
type Registry struct {
	mu    sync.RWMutex
	tools []Tool
	index map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]Tool)}
}

// Register adds t. Names are unique.
func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return ErrEmptyToolName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools = append(r.tools, t)
	r.index[name] = t
	return nil
}

// Describe returns the descriptors of all tools in registration order.
func (r *Registry) Describe() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, len(r.tools))
	for i, t := range r.tools {
		out[i] = Descriptor{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()}
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name()
	}
	return names
}

// Has reports whether a tool with the exact name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[name]
	return ok
}

// Execute runs the named tool and returns its output. Failures, including
// an unknown name, are returned as text for the model rather than as errors.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) string {
	r.mu.RLock()
	t, ok := r.index[name]
	r.mu.RUnlock()

	if !ok {
		slog.Warn("model requested unknown tool", "tool", name)
		return fmt.Sprintf("Error: %v: '%s'", ErrToolNotFound, name)
	}

	out, err := t.Execute(ctx, args)
	if err != nil {
		slog.Warn("tool execution failed", "tool", name, "error", err)
		return fmt.Sprintf("Error: %s: %v", name, err)
	}
	return out
}

// decodeArgs unmarshals args into v, treating empty or null input as {}.
func decodeArgs(args json.RawMessage, v any) error {
	trimmed := strings.TrimSpace(string(args))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// truncate shortens s to at most n bytes, marking the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n[truncated]"
}
