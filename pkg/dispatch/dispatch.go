// Package dispatch invokes a single tool on the tool service.
//
// Each Invoke opens its own session and closes it before returning, whatever
// the outcome.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wilhg/relay/internal/logging"
	"github.com/wilhg/relay/pkg/errmodel"
	"github.com/wilhg/relay/pkg/mcpclient"
	"github.com/wilhg/relay/pkg/tool"
)

// NoResponse stands in for a tool that produced no text content.
const NoResponse = "No response"

// ErrToolInvocation is wrapped by every error Invoke returns.
var ErrToolInvocation = errors.New("tool invocation failed")

// Dispatcher sends tool calls to the tool service.
type Dispatcher struct {
	conn     mcpclient.Connector
	logger   *slog.Logger
	validate tool.ValidateFunc
	schemas  map[string][]byte
}

type Option func(*Dispatcher)

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithValidator checks parameters against the advertised input schema of the
// named tool before any session is opened. Tools absent from schemas are not
// checked.
func WithValidator(v tool.ValidateFunc, schemas map[string][]byte) Option {
	return func(d *Dispatcher) {
		d.validate = v
		d.schemas = schemas
	}
}

func New(conn mcpclient.Connector, opts ...Option) *Dispatcher {
	d := &Dispatcher{conn: conn, logger: logging.NewNop()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// SetSchemas replaces the schemas used by the validator, typically with a
// freshly synced catalog.
func (d *Dispatcher) SetSchemas(schemas map[string][]byte) { d.schemas = schemas }

// Invoke calls tool name with params in a fresh session and returns the text
// of the first content item, or NoResponse when there is none.
func (d *Dispatcher) Invoke(ctx context.Context, name string, params map[string]any) (out string, err error) {
	ctx, span := otel.Tracer("relay/dispatch").Start(ctx, "dispatch.Invoke")
	span.SetAttributes(attribute.String("tool.name", name))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, "tool invocation failed")
		}
		toolCallsTotal.WithLabelValues(name, outcome).Inc()
		toolCallDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		span.End()
	}()

	if d.validate != nil {
		if schema, ok := d.schemas[name]; ok {
			if verr := d.validate(schema, params); verr != nil {
				return "", invocationError("invalid_parameters", "validate", "parameters do not match the tool schema", name, verr)
			}
		}
	}

	s, err := d.conn.Connect(ctx)
	if err != nil {
		return "", invocationError("invocation_failed", "connect", "could not open a tool session", name, err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			d.logger.Debug("closing tool session", "tool", name, "err", cerr)
		}
	}()

	res, err := s.CallTool(ctx, name, params)
	if err != nil {
		return "", invocationError("invocation_failed", "call", "tool call failed", name, err)
	}
	if res.IsError {
		return "", invocationError("invocation_failed", "result", "tool reported an error: "+res.Text, name, nil)
	}
	if !res.HasText {
		return NoResponse, nil
	}
	return res.Text, nil
}

// invocationError builds a tool-category error; stage records where the call
// failed (validate, connect, call, result).
func invocationError(code, stage, msg, name string, cause error) *errmodel.Error {
	causes := []error{ErrToolInvocation}
	if cause != nil {
		causes = append(causes, cause)
		msg += ": " + cause.Error()
	}
	return errmodel.Tool(code, msg, map[string]any{"tool": name, "stage": stage}, causes...)
}
