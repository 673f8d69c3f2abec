// Package catalog fetches and caches the tool descriptors advertised by the
// tool service and renders them into prompt text.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wilhg/relay/internal/logging"
	"github.com/wilhg/relay/pkg/mcpclient"
	"github.com/wilhg/relay/pkg/tool"
)

// Catalog is a snapshot of the tool service's tools.
type Catalog struct {
	conn        mcpclient.Connector
	logger      *slog.Logger
	checkSchema bool

	mu    sync.RWMutex
	tools []mcpclient.ToolDescriptor
}

type Option func(*Catalog)

func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSchemaCheck drops tools whose advertised input schema does not compile.
func WithSchemaCheck() Option { return func(c *Catalog) { c.checkSchema = true } }

func New(conn mcpclient.Connector, opts ...Option) *Catalog {
	c := &Catalog{conn: conn, logger: logging.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Sync opens a session, lists the tools and closes the session again.
// The result replaces the cached snapshot.
func (c *Catalog) Sync(ctx context.Context) ([]mcpclient.ToolDescriptor, error) {
	ctx, span := otel.Tracer("relay/catalog").Start(ctx, "catalog.Sync")
	defer span.End()

	s, err := c.conn.Connect(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "connect")
		return nil, err
	}
	defer func() { _ = s.Close() }()

	listed, err := s.ListTools(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list tools")
		return nil, err
	}
	tools := make([]mcpclient.ToolDescriptor, 0, len(listed))
	for _, d := range listed {
		if c.checkSchema {
			if err := tool.CompileJSONSchema(d.InputSchema); err != nil {
				c.logger.Warn("dropping tool with invalid input schema", "tool", d.Name, "error", err)
				continue
			}
		}
		tools = append(tools, d)
	}
	span.SetAttributes(attribute.Int("catalog.tools", len(tools)))

	c.mu.Lock()
	c.tools = tools
	c.mu.Unlock()

	names := make([]string, 0, len(tools))
	for _, d := range tools {
		names = append(names, d.Name)
	}
	c.logger.Info("tool catalog synced", "tools", names)
	return Copy(tools), nil
}

// Tools returns the cached snapshot.
func (c *Catalog) Tools() []mcpclient.ToolDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Copy(c.tools)
}

// Copy returns a copy of tools that shares no schema bytes with the input.
func Copy(tools []mcpclient.ToolDescriptor) []mcpclient.ToolDescriptor {
	if tools == nil {
		return nil
	}
	out := make([]mcpclient.ToolDescriptor, len(tools))
	for i, d := range tools {
		d.InputSchema = bytes.Clone(d.InputSchema)
		out[i] = d
	}
	return out
}

// Schemas maps tool names to their input schemas.
func Schemas(tools []mcpclient.ToolDescriptor) map[string][]byte {
	m := make(map[string][]byte, len(tools))
	for _, d := range tools {
		m[d.Name] = d.InputSchema
	}
	return m
}

// Render lists tools as
//
//	- name: description
//	  Parameters: {
//	    ...
//	  }
//
// one block per tool, in catalog order.
func Render(tools []mcpclient.ToolDescriptor) string {
	lines := make([]string, 0, len(tools))
	for _, d := range tools {
		lines = append(lines, "- "+d.Name+": "+d.Description+"\n  Parameters: "+indentSchema(d.InputSchema))
	}
	return strings.Join(lines, "\n")
}

func indentSchema(raw []byte) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
