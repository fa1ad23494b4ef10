// Package httpapi implements the observability HTTP surface (§4.6):
// read-only JSON endpoints over the metrics store, plus a polling
// HTML dashboard and an additive Prometheus /metrics endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/streamgraph/engine/internal/metrics"
	"github.com/streamgraph/engine/pkg/tracing"
)

// Server serves the observability endpoints.
type Server struct {
	store  *metrics.Store
	logger *logrus.Logger
	http   *http.Server
}

// New builds a Server bound to addr ("host:port"). tracer may be nil,
// in which case requests are served without span instrumentation.
func New(addr string, store *metrics.Store, logger *logrus.Logger, tracer trace.Tracer) *Server {
	router := mux.NewRouter()
	s := &Server{store: store, logger: logger}

	router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/trace", s.handleTrace).Methods(http.MethodGet)
	router.HandleFunc("/errors", s.handleErrors).Methods(http.MethodGet)
	router.HandleFunc("/files", s.handleFiles).Methods(http.MethodGet)
	router.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	var handler http.Handler = router
	handler = corsMiddleware(handler)
	if tracer != nil {
		handler = tracing.HTTPMiddleware(tracer, handler)
	}

	s.http = &http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s
}

// corsMiddleware permits any origin, per §4.6: this is an operator
// surface with no authentication, not a user-facing API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the server's root http.Handler, useful for testing
// the routes without binding a real listener.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks serving HTTP until Shutdown is called.
func (s *Server) ListenAndServe() error {
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, honoring ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// The header is already sent at this point; nothing more to do
		// beyond not panicking.
		return
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"processors": s.store.GetMetrics(),
		"timestamp":  float64(time.Now().UnixNano()) / 1e9,
	})
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetTraces(parseLimit(r)))
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetErrors(parseLimit(r)))
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetFileState())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}
