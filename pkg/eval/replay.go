package eval

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/wilhg/relay/pkg/adapters/llm"
	"github.com/wilhg/relay/pkg/mcpclient"
)

// ReplayModel answers with recorded model outputs in order and repeats the
// last one once they run out. It records every prompt it receives.
type ReplayModel struct {
	mu      sync.Mutex
	outputs []string
	prompts []string
}

func NewReplayModel(outputs ...string) *ReplayModel {
	return &ReplayModel{outputs: outputs}
}

func (m *ReplayModel) Name() string { return "replay" }

func (m *ReplayModel) Generate(_ context.Context, messages []llm.Message, _ map[string]any) (llm.GenerateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.prompts)
	m.prompts = append(m.prompts, llm.Prompt(messages))
	if len(m.outputs) == 0 {
		return llm.GenerateResult{}, errors.New("eval: replay model has no outputs")
	}
	if i >= len(m.outputs) {
		i = len(m.outputs) - 1
	}
	return llm.GenerateResult{Text: m.outputs[i], Model: "replay"}, nil
}

// Prompts returns the prompts seen so far.
func (m *ReplayModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// failPrefix marks a canned result that should fail the call instead.
const failPrefix = "!error:"

// CannedTools serves fixed results by tool name. A result starting with
// "!error:" makes the call fail with the rest as the message.
type CannedTools struct {
	mu      sync.Mutex
	results map[string]string
	calls   []string
}

func NewCannedTools(results map[string]string) *CannedTools {
	return &CannedTools{results: results}
}

// Sync advertises one schemaless tool per canned result.
func (c *CannedTools) Sync(context.Context) ([]mcpclient.ToolDescriptor, error) {
	out := make([]mcpclient.ToolDescriptor, 0, len(c.results))
	for _, name := range sortedKeys(c.results) {
		out = append(out, mcpclient.ToolDescriptor{Name: name, Description: "canned " + name})
	}
	return out, nil
}

func (c *CannedTools) Invoke(_ context.Context, name string, _ map[string]any) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, name)
	c.mu.Unlock()
	res, ok := c.results[name]
	if !ok {
		return "", errors.New("unknown tool " + name)
	}
	if msg, failed := strings.CutPrefix(res, failPrefix); failed {
		return "", errors.New(strings.TrimSpace(msg))
	}
	return res, nil
}

// Calls returns invoked tool names in call order.
func (c *CannedTools) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}
