// Package observability sets up OpenTelemetry tracing for batch runs. When
// tracing is disabled the global no-op provider is left in place, so spans
// cost nothing.
package observability

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/bolasso/pkg/errors"
)

const instrumentationName = "github.com/ajitpratap0/bolasso"

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	// Output receives stdout exporter output; os.Stderr when nil.
	Output      io.Writer
	PrettyPrint bool
	// Exporter overrides the stdout exporter.
	Exporter sdktrace.SpanExporter
}

// ShutdownFunc flushes and stops the tracer provider
type ShutdownFunc func(context.Context) error

// InitTracing installs a global tracer provider. The returned function must
// be called before exit to flush pending spans.
func InitTracing(cfg TracingConfig) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter := cfg.Exporter
	if exporter == nil {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		opts := []stdouttrace.Option{stdouttrace.WithWriter(out)}
		if cfg.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		var err error
		exporter, err = stdouttrace.New(opts...)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create stdout exporter")
		}
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// Tracer returns the package tracer from the global provider
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a span named after a pipeline step
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// Trace runs fn inside a span and records its error on the span
func Trace(ctx context.Context, name string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := StartSpan(ctx, name, attrs...)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}
