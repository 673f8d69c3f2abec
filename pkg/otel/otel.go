// Package otel installs relay's tracer provider. Spans are always recorded so
// trace ids reach logs and HTTP error envelopes; exporting them is optional.
package otel

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const ServiceName = "relay"

// Config describes the running relay process.
type Config struct {
	// Version is the build version; empty reports "dev".
	Version string
	// Command is the CLI command being run, such as "ask" or "serve".
	Command  string
	Provider string
	Model    string
	// Export receives finished spans as JSON. Nil records without exporting.
	// Never stdout for `ask` or `tools`: stdout carries the answer and the
	// MCP stdio stream.
	Export io.Writer
}

// Resource builds the resource every relay span carries. OTEL_RESOURCE_ATTRIBUTES
// is honoured.
func Resource(ctx context.Context, cfg Config) (*sdkresource.Resource, error) {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(version),
	}
	for k, v := range map[string]string{
		"relay.command":        cfg.Command,
		"relay.model.provider": cfg.Provider,
		"relay.model.name":     cfg.Model,
	} {
		if v != "" {
			attrs = append(attrs, attribute.String(k, v))
		}
	}
	return sdkresource.New(ctx, sdkresource.WithFromEnv(), sdkresource.WithAttributes(attrs...))
}

// Init installs the global tracer provider and returns its shutdown func,
// which flushes any exported spans.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	res, err := Resource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.Export != nil {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Export))
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(200*time.Millisecond)))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
