// Package mcptest wires in-memory MCP tool servers for tests.
package mcptest

import (
	"context"
	"sync/atomic"
	"testing"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wilhg/relay/pkg/mcpclient"
	"github.com/wilhg/relay/pkg/mcpserver"
	"github.com/wilhg/relay/pkg/tool"
)

// Connector counts the sessions it opened against an in-memory server.
type Connector struct {
	mcpclient.Connector
	sessions atomic.Int64
}

// Sessions returns how many sessions were opened so far.
func (c *Connector) Sessions() int { return int(c.sessions.Load()) }

// New serves every tool of reg (all permissions granted, schemas enforced)
// and returns a connector opening a fresh in-memory session per Connect.
func New(t testing.TB, reg *tool.Registry) *Connector {
	t.Helper()
	srv := mcpserver.New("relay-test", "0.0.0")
	allowed := map[string]bool{}
	reg.Range(func(_ string, tl tool.Tool) {
		for _, p := range tl.Describe().Permissions {
			allowed[p.Name] = true
		}
	})
	if err := srv.RegisterFromRegistry(reg, allowed, tool.JSONSchemaValidator); err != nil {
		t.Fatalf("register: %v", err)
	}
	return FromServer(t, srv.Connect)
}

// FromServer builds a connector over any server connect function, including
// a raw *mcp.Server's method value adapted by the caller.
func FromServer(t testing.TB, connect func(context.Context, mcp.Transport) (*mcp.ServerSession, error)) *Connector {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	c := &Connector{}
	c.Connector = mcpclient.TransportFunc(func(_ context.Context) (mcp.Transport, error) {
		st, ct := mcp.NewInMemoryTransports()
		if _, err := connect(ctx, st); err != nil {
			return nil, err
		}
		c.sessions.Add(1)
		return ct, nil
	})
	return c
}

// FuncTool is a tool backed by a function, for tests.
type FuncTool struct {
	Name   string
	Schema string
	Fn     func(ctx context.Context, args map[string]any) (string, error)
}

func (f FuncTool) Describe() tool.Descriptor {
	schema := f.Schema
	if schema == "" {
		schema = `{"type":"object"}`
	}
	return tool.Descriptor{Name: f.Name, Description: f.Name + " tool", InputSchema: []byte(schema)}
}

func (f FuncTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	return f.Fn(ctx, args)
}

// Registry registers tools and fails the test on error.
func Registry(t testing.TB, tools ...tool.Tool) *tool.Registry {
	t.Helper()
	reg := tool.NewRegistry()
	for _, tl := range tools {
		if err := reg.Register(tl); err != nil {
			t.Fatalf("register %T: %v", tl, err)
		}
	}
	return reg
}
