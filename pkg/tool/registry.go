package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wilhg/relay/pkg/errmodel"
)

// Registry keeps tools by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry { return &Registry{tools: map[string]Tool{}} }

// Register adds t under its descriptor name.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool is nil")
	}
	d := t.Describe()
	if d.Name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if err := CompileJSONSchema(d.InputSchema); err != nil {
		return fmt.Errorf("tool %q: invalid input schema: %w", d.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("tool %q already registered", d.Name)
	}
	r.tools[d.Name] = t
	return nil
}

// Resolve returns a tool by name.
func (r *Registry) Resolve(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Range calls fn for every tool in name order.
func (r *Registry) Range(fn func(name string, t Tool)) {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	for _, n := range names {
		if t, ok := r.Resolve(n); ok {
			fn(n, t)
		}
	}
}

// SafeInvoke checks permissions and validates args against the tool's input
// schema before invoking it. Missing permissions yield a policy error, schema
// violations a validation error.
func SafeInvoke(ctx context.Context, t Tool, args map[string]any, allowed map[string]bool, validate ValidateFunc) (string, error) {
	if t == nil {
		return "", errmodel.Validation("bad_tool", "tool is nil", nil)
	}
	d := t.Describe()
	for _, p := range d.Permissions {
		if !allowed[p.Name] {
			return "", errmodel.Policy("forbidden", "permission denied for tool", map[string]any{"permission": p.Name, "tool": d.Name})
		}
	}
	if args == nil {
		args = map[string]any{}
	}
	if validate != nil {
		if err := validate(d.InputSchema, args); err != nil {
			return "", errmodel.Validation("invalid_input", "tool input validation failed", map[string]any{"tool": d.Name, "error": err.Error()})
		}
	}
	return t.Invoke(ctx, args)
}
