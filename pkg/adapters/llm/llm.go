// Package llm defines the text generation port the agent talks to and a
// registry of provider factories.
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Option keys understood by every provider. Providers ignore keys they
// cannot honor.
const (
	OptModel       = "model"
	OptMaxTokens   = "max_tokens"
	OptTemperature = "temperature"
	OptStop        = "stop"
)

// Message represents a chat message with a role and content.
type Message struct {
	Role    string
	Content string
}

// GenerateResult contains the model's text output and token usage if available.
type GenerateResult struct {
	Text         string
	PromptTokens int
	OutputTokens int
	TotalTokens  int
	Model        string
}

// LLM defines a minimal text generation interface.
type LLM interface {
	// Name returns provider name (e.g., "ollama").
	Name() string
	// Generate produces a completion. Completion-style providers concatenate
	// message contents into a single raw prompt.
	Generate(ctx context.Context, messages []Message, opts map[string]any) (GenerateResult, error)
}

// Factory constructs an LLM from provider-specific config.
type Factory func(ctx context.Context, cfg map[string]any) (LLM, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers an LLM factory under a provider name.
func Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("llm: empty provider name")
	}
	if f == nil {
		return fmt.Errorf("llm: nil factory for %q", name)
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := factories[name]; exists {
		return fmt.Errorf("llm: provider %q already registered", name)
	}
	factories[name] = f
	return nil
}

// Resolve gets a registered factory by name.
func Resolve(name string) (Factory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Names lists registered providers in sorted order.
func Names() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Open resolves provider and builds it with cfg.
func Open(ctx context.Context, provider string, cfg map[string]any) (LLM, error) {
	f, ok := Resolve(provider)
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q (registered: %v)", provider, Names())
	}
	return f(ctx, cfg)
}

// Prompt joins message contents with newlines, the way completion-style
// providers consume them.
func Prompt(messages []Message) string {
	if len(messages) == 1 {
		return messages[0].Content
	}
	var out string
	for i, m := range messages {
		if i > 0 {
			out += "\n"
		}
		out += m.Content
	}
	return out
}

// String returns opts[key] when it is a non-empty string.
func String(opts map[string]any, key string) (string, bool) {
	v, ok := opts[key].(string)
	return v, ok && v != ""
}

// Int returns opts[key] as an int. JSON and YAML decoders produce
// float64 and int respectively; both are accepted.
func Int(opts map[string]any, key string) (int, bool) {
	switch v := opts[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Float returns opts[key] as a float64.
func Float(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Strings returns opts[key] as a string slice.
func Strings(opts map[string]any, key string) ([]string, bool) {
	switch v := opts[key].(type) {
	case []string:
		return v, len(v) > 0
	case []any:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
		return out, len(out) > 0
	}
	return nil, false
}
