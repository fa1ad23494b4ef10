package tracing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgraph/engine/pkg/tracing"
)

func TestTracerFallsBackToNoOpWhenProviderNil(t *testing.T) {
	tr := tracing.Tracer(nil)
	require.NotNil(t, tr)
	_, span := tr.Start(context.Background(), "test")
	span.End()
}

func TestStartEngineRunTagsFilename(t *testing.T) {
	provider := tracing.NewProvider()
	defer provider.Shutdown(context.Background())
	tr := tracing.Tracer(provider)

	_, span := tracing.StartEngineRun(context.Background(), tr, "input.txt")
	assert.True(t, span.IsRecording())
	span.End()
}

func TestHTTPMiddlewareCallsThrough(t *testing.T) {
	provider := tracing.NewProvider()
	defer provider.Shutdown(context.Background())
	tr := tracing.Tracer(provider)

	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	wrapped := tracing.HTTPMiddleware(tr, inner)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}
