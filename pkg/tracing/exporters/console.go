// Package exporters holds span exporters for environments without a
// collector.
package exporters

import (
	"context"

	"github.com/Gobusters/ectologger"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ConsoleExporter logs finished spans at debug level. It stands in for a
// collector-backed exporter in local runs; with debug logging off it is
// effectively a sink.
type ConsoleExporter struct {
	logger ectologger.Logger
}

func NewConsoleExporter(logger ectologger.Logger) *ConsoleExporter {
	return &ConsoleExporter{logger: logger}
}

func (c *ConsoleExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		sc := span.SpanContext()
		c.logger.WithFields(map[string]any{
			"trace_id": sc.TraceID().String(),
			"span_id":  sc.SpanID().String(),
			"duration": span.EndTime().Sub(span.StartTime()).String(),
		}).Debugf("span %s", span.Name())
	}
	return nil
}

func (c *ConsoleExporter) Shutdown(context.Context) error {
	return nil
}
