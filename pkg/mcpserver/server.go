// Package mcpserver exposes a tool.Registry over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wilhg/relay/internal/logging"
	"github.com/wilhg/relay/pkg/errmodel"
	"github.com/wilhg/relay/pkg/tool"
)

// Server wraps an SDK server populated from a registry.
type Server struct {
	srv    *mcp.Server
	logger *slog.Logger
}

type Option func(*Server)

// WithLogger sets the logger used for per-call diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server named name/version.
func New(name, version string, opts ...Option) *Server {
	s := &Server{
		srv:    mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		logger: logging.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RegisterFromRegistry exports every tool of reg. Calls go through
// tool.SafeInvoke so permissions and input schemas are enforced server side.
func (s *Server) RegisterFromRegistry(reg *tool.Registry, allowed map[string]bool, validate tool.ValidateFunc) error {
	var firstErr error
	reg.Range(func(name string, t tool.Tool) {
		if firstErr != nil {
			return
		}
		d := t.Describe()
		schema, err := toSchema(d.InputSchema)
		if err != nil {
			firstErr = fmt.Errorf("mcpserver: tool %q: %w", name, err)
			return
		}
		s.srv.AddTool(&mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: schema,
		}, s.handler(t, allowed, validate))
	})
	return firstErr
}

func (s *Server) handler(t tool.Tool, allowed map[string]bool, validate tool.ValidateFunc) mcp.ToolHandler {
	name := t.Describe().Name
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return errorResult(errmodel.Validation("bad_json", "arguments are not a JSON object", map[string]any{"tool": name})), nil
			}
		}
		out, err := tool.SafeInvoke(ctx, t, args, allowed, validate)
		if err != nil {
			s.logger.Warn("tool call failed", "tool", name, "error", err)
			return errorResult(err), nil
		}
		s.logger.Debug("tool call", "tool", name)
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: out}}}, nil
	}
}

// Run serves over t until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.srv.Run(ctx, t)
}

// ServeStdio serves on stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Connect starts a session over t without blocking; used with in-memory transports.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.srv.Connect(ctx, t, nil)
}

func toSchema(raw []byte) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return &jsonschema.Schema{Type: "object"}, nil
	}
	var sch jsonschema.Schema
	if err := json.Unmarshal(raw, &sch); err != nil {
		return nil, err
	}
	if sch.Type != "object" {
		return nil, fmt.Errorf("input schema must have type object, got %q", sch.Type)
	}
	return &sch, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}
