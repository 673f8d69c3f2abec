// Package mcpclient opens short-lived sessions against an MCP tool service.
//
// Every session is independent: the catalog and the dispatcher each connect,
// use, and close their own session, so no connection state is shared between
// tool calls.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDescriptor is the subset of the MCP tool schema the agent needs.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema []byte
}

// CallResult is a tool's reply reduced to what the agent consumes.
type CallResult struct {
	// Text holds content[0].text when the first content item is text.
	Text string
	// HasText is false when the tool returned no content or non-text content.
	HasText bool
	IsError bool
}

// Session is one initialized connection to the tool service.
type Session interface {
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (CallResult, error)
	Close() error
}

// Connector opens a new, already initialized Session.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// Implementation identifies this client during the initialize handshake.
var Implementation = &mcp.Implementation{Name: "relay", Version: "0.1.0"}

type sdkSession struct {
	s *mcp.ClientSession
}

// connect runs the initialize handshake over t. The SDK performs initialize
// and the initialized notification inside Connect.
func connect(ctx context.Context, t mcp.Transport) (Session, error) {
	c := mcp.NewClient(Implementation, nil)
	s, err := c.Connect(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: connect: %w", err)
	}
	return &sdkSession{s: s}, nil
}

func (s *sdkSession) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	var (
		out    []ToolDescriptor
		cursor string
	)
	for {
		res, err := s.s.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("mcpclient: list tools: %w", err)
		}
		for _, t := range res.Tools {
			d, err := fromSDKTool(t)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		if res.NextCursor == "" {
			return out, nil
		}
		cursor = res.NextCursor
	}
}

func (s *sdkSession) CallTool(ctx context.Context, name string, args map[string]any) (CallResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	res, err := s.s.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return CallResult{}, fmt.Errorf("mcpclient: call tool %q: %w", name, err)
	}
	out := CallResult{IsError: res.IsError}
	if len(res.Content) > 0 {
		if tc, ok := res.Content[0].(*mcp.TextContent); ok {
			out.Text = tc.Text
			out.HasText = true
		}
	}
	return out, nil
}

func (s *sdkSession) Close() error { return s.s.Close() }

func fromSDKTool(t *mcp.Tool) (ToolDescriptor, error) {
	d := ToolDescriptor{Name: t.Name, Description: t.Description}
	if t.InputSchema != nil {
		b, err := json.Marshal(t.InputSchema)
		if err != nil {
			return ToolDescriptor{}, fmt.Errorf("mcpclient: marshal input schema of %q: %w", t.Name, err)
		}
		d.InputSchema = b
	}
	return d, nil
}
