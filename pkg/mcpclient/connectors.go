package mcpclient

import (
	"context"
	"errors"
	"net/http"
	"os/exec"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// CommandConnector spawns the tool server as a subprocess speaking MCP over
// stdio. Each Connect starts a new process; closing the session stops it.
type CommandConnector struct {
	Command string
	Args    []string
	Env     []string
}

func (c CommandConnector) Connect(ctx context.Context) (Session, error) {
	if c.Command == "" {
		return nil, errors.New("mcpclient: empty command")
	}
	cmd := exec.Command(c.Command, c.Args...) //nolint:gosec // configured by the operator
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	return connect(ctx, &mcp.CommandTransport{Command: cmd})
}

// HTTPConnector reaches a tool server over the streamable HTTP transport.
type HTTPConnector struct {
	Endpoint   string
	HTTPClient *http.Client
}

func (c HTTPConnector) Connect(ctx context.Context) (Session, error) {
	if c.Endpoint == "" {
		return nil, errors.New("mcpclient: empty endpoint")
	}
	return connect(ctx, &mcp.StreamableClientTransport{Endpoint: c.Endpoint, HTTPClient: c.HTTPClient})
}

// TransportFunc adapts a transport factory into a Connector. It is mostly
// useful with mcp.NewInMemoryTransports.
type TransportFunc func(ctx context.Context) (mcp.Transport, error)

func (f TransportFunc) Connect(ctx context.Context) (Session, error) {
	t, err := f(ctx)
	if err != nil {
		return nil, err
	}
	return connect(ctx, t)
}

// ConnectorFunc adapts a plain function into a Connector.
type ConnectorFunc func(ctx context.Context) (Session, error)

func (f ConnectorFunc) Connect(ctx context.Context) (Session, error) { return f(ctx) }
