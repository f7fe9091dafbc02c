package middleware

import (
	"errors"
	"strings"
	"testing"

	"github.com/micropy-dev/micropy/pkg/server"
)

func TestOpenTelemetryTracksSpan(t *testing.T) {
	mw := OpenTelemetry()
	ctx := server.New("GET", "/item/42", "", nil, nil)

	if _, err := mw.Before(ctx); err != nil {
		t.Fatalf("before hook error: %v", err)
	}
	if SpanFromContext(ctx) == nil {
		t.Fatal("expected a span on the context")
	}
	if TraceContext(ctx) == nil {
		t.Fatal("expected a trace context")
	}

	ctx.SetResult(200, nil)
	if err := mw.After(ctx); err != nil {
		t.Fatalf("after hook error: %v", err)
	}
}

func TestOpenTelemetryRecordsFailure(t *testing.T) {
	mw := OpenTelemetry()
	ctx := server.New("GET", "/boom", "", nil, nil)

	if _, err := mw.Before(ctx); err != nil {
		t.Fatalf("before hook error: %v", err)
	}
	ctx.SetResult(500, errors.New("boom"))
	// the after hook must not panic while recording a failed outcome
	if err := mw.After(ctx); err != nil {
		t.Fatalf("after hook error: %v", err)
	}
}

func TestOpenTelemetryFilterSkips(t *testing.T) {
	mw := OpenTelemetry(WithRequestFilter(func(ctx *server.Ctx) bool {
		return !strings.HasPrefix(ctx.Path, "/health")
	}))
	ctx := server.New("GET", "/healthz", "", nil, nil)

	if _, err := mw.Before(ctx); err != nil {
		t.Fatalf("before hook error: %v", err)
	}
	if SpanFromContext(ctx) != nil {
		t.Fatal("filtered request must not carry a span")
	}
	ctx.SetResult(200, nil)
	if err := mw.After(ctx); err != nil {
		t.Fatalf("after hook on untraced request error: %v", err)
	}
}

func TestTraceContextFallsBack(t *testing.T) {
	ctx := server.New("GET", "/", "", nil, nil)
	if TraceContext(ctx) == nil {
		t.Fatal("untraced request must still yield a usable context")
	}
}
