// Package tracing holds the process-wide tracer and the span helpers the
// repositories and pipeline wrap their operations in. With no tracer set,
// StartSpan is a no-op, so tests need no tracing setup.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

// SetTracer installs the tracer used by StartSpan. Called once at startup.
func SetTracer(t trace.Tracer) {
	tracer = t
}

// StartSpan starts a named span under the active one, if a tracer is set
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName)
}

// GetActiveSpan returns the active span, or nil when tracing is off or no
// recording span is on the context.
func GetActiveSpan(ctx context.Context) trace.Span {
	if tracer == nil {
		return nil
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	return span
}

// GetTraceParent returns the W3C traceparent for the active span, for
// propagation on outbound Kafka headers. Empty when tracing is off.
func GetTraceParent(ctx context.Context) string {
	return injectTraceContext(ctx).Get("traceparent")
}

// GetTraceState returns the W3C tracestate for the active span
func GetTraceState(ctx context.Context) string {
	return injectTraceContext(ctx).Get("tracestate")
}

func injectTraceContext(ctx context.Context) propagation.MapCarrier {
	carrier := propagation.MapCarrier{}
	if GetActiveSpan(ctx) == nil {
		return carrier
	}
	propagation.TraceContext{}.Inject(ctx, carrier)
	return carrier
}
