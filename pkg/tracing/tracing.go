// Package tracing provides a small operator-facing span layer built
// on the OpenTelemetry SDK, used alongside (never instead of) the
// engine's own MetricsStore line traces. HTTPMiddleware opens one span
// per HTTP request; StartEngineRun builds a span for one file's run,
// but the folder monitor does not call it, so no per-file span is
// recorded. No exporter is attached,
// since this engine has no remote tracing backend to ship to — the
// SDK still tracks span lifecycles and is ready for an exporter to be
// attached later without further code changes.
package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// NewProvider constructs an SDK tracer provider sampling every span.
// Callers should call Shutdown on process exit.
func NewProvider() *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
}

// instrumentationName is the package-scoped tracer name used throughout the engine.
const instrumentationName = "github.com/streamgraph/engine"

// Tracer returns a named tracer from the given provider, or the
// global no-op tracer if provider is nil (tracing disabled).
func Tracer(provider *sdktrace.TracerProvider) trace.Tracer {
	if provider == nil {
		return otel.Tracer(instrumentationName)
	}
	return provider.Tracer(instrumentationName)
}

// StartEngineRun starts a span covering one folder-monitor file run.
func StartEngineRun(ctx context.Context, tracer trace.Tracer, filename string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "engine.run", trace.WithAttributes(
		attribute.String("file.name", filename),
	))
}

// HTTPMiddleware wraps an http.Handler with a span per request.
func HTTPMiddleware(tracer trace.Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx, span := tracer.Start(req.Context(), "http."+req.Method+" "+req.URL.Path, trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.path", req.URL.Path),
		))
		defer span.End()
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}
