package mcp

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts a new span with the given name and options. Without a
// configured tracer provider on the context this is a no-op span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return trace.SpanFromContext(ctx).TracerProvider().
		Tracer("github.com/shaharia-lab/weather-mcp-server").
		Start(ctx, name, opts...)
}
