package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/micropy-dev/micropy/pkg/server"
)

// Default tracer name for dispatch spans.
const defaultTracerName = "micropy"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "micropy").
	TracerName string

	// Filter determines which requests to trace. Return true to trace
	// the request, false to skip. If nil, all requests are traced.
	Filter func(ctx *server.Ctx) bool

	// AttributeExtractor extracts custom attributes from the context,
	// called for each traced request.
	AttributeExtractor func(ctx *server.Ctx) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithRequestFilter sets a filter function for requests.
func WithRequestFilter(filter func(ctx *server.Ctx) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ctx *server.Ctx) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// spanKey stores the span and its context on the request context.
type spanKey struct{}

type spanState struct {
	span trace.Span
	ctx  context.Context
}

// OpenTelemetry creates a before/after hook pair that traces every
// dispatched request.
//
// The middleware:
//   - opens a server span per request, named "METHOD /path"
//   - stores the span context on the Ctx for downstream calls
//   - records the failure and sets the span status from the outcome
//
// The tracer uses the global OpenTelemetry tracer provider; configure
// it with otel.SetTracerProvider before starting the server.
func OpenTelemetry(opts ...OTelOption) server.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	before := func(ctx *server.Ctx) (map[string]any, error) {
		if config.Filter != nil && !config.Filter(ctx) {
			return nil, nil
		}

		attrs := []attribute.KeyValue{
			attribute.String("http.method", ctx.Method),
			attribute.String("http.target", ctx.Path),
			attribute.Bool("micropy.session_present", len(ctx.Session) > 0),
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(ctx)...)
		}

		spanCtx, span := config.tracer.Start(
			ctx.StdContext(),
			fmt.Sprintf("%s %s", ctx.Method, ctx.Path),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		ctx.SetValue(spanKey{}, &spanState{span: span, ctx: spanCtx})
		return nil, nil
	}

	after := func(ctx *server.Ctx) error {
		state, ok := ctx.Value(spanKey{}).(*spanState)
		if !ok {
			return nil
		}
		span := state.span
		span.SetAttributes(attribute.Int("http.status_code", ctx.Status()))
		if err := ctx.HandlerError(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if ctx.Status() >= 500 {
			span.SetStatus(codes.Error, "")
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		return nil
	}

	return server.Middleware{Before: before, After: after}
}

// SpanFromContext retrieves the current trace span from the request
// context. Returns nil if the request is not being traced.
func SpanFromContext(ctx *server.Ctx) trace.Span {
	if state, ok := ctx.Value(spanKey{}).(*spanState); ok {
		return state.span
	}
	return nil
}

// TraceContext returns the trace context for propagation to external
// services, falling back to the request's standard context.
func TraceContext(ctx *server.Ctx) context.Context {
	if state, ok := ctx.Value(spanKey{}).(*spanState); ok {
		return state.ctx
	}
	return ctx.StdContext()
}
