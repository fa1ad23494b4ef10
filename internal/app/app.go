// Package app wires the engine's components together: the metrics
// store, the pipeline builder and its hot-reloading config, the
// folder monitor, and the observability HTTP surface.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/streamgraph/engine/internal/config"
	"github.com/streamgraph/engine/internal/confreload"
	"github.com/streamgraph/engine/internal/httpapi"
	"github.com/streamgraph/engine/internal/metrics"
	"github.com/streamgraph/engine/internal/monitors"
	"github.com/streamgraph/engine/pkg/builder"
	"github.com/streamgraph/engine/pkg/pipelineconfig"
	"github.com/streamgraph/engine/pkg/tracing"
)

// App owns every long-lived component for one process lifetime.
type App struct {
	cfg    *config.Config
	logger *logrus.Logger

	store          *metrics.Store
	prom           *metrics.PrometheusBridge
	tracerProvider *sdktrace.TracerProvider

	reloader *confreload.Reloader
	monitor  *monitors.FolderMonitor
	http     *httpapi.Server
}

// New builds an App from cfg. It performs the one-time, fallible work
// of parsing the initial pipeline document — any ConfigError here is
// fatal, matching §7's "fatal at startup" rule.
func New(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	store := metrics.NewStore(cfg.TracingEnabled)
	prom := metrics.NewPrometheusBridge(prometheus.DefaultRegisterer)

	var provider *sdktrace.TracerProvider
	var tracer = tracing.Tracer(nil)
	if cfg.TracingEnabled {
		provider = tracing.NewProvider()
		tracer = tracing.Tracer(provider)
	}

	b := builder.New(store, prom, tracer)

	buildValue := func(path string) (interface{}, error) {
		doc, err := pipelineconfig.Load(path)
		if err != nil {
			return nil, err
		}
		if doc.TracingEnabled != nil {
			store.SetTracingEnabled(*doc.TracingEnabled)
		}
		return b.BuildRunner(doc)
	}

	reloader, err := confreload.New(cfg.ConfigPath, buildValue, logger)
	if err != nil {
		return nil, fmt.Errorf("building initial pipeline: %w", err)
	}

	monitor := monitors.New(monitors.Config{
		BaseDir:      cfg.BaseDir,
		OutputDir:    cfg.OutputDir,
		PollInterval: cfg.PollInterval,
	}, func() (monitors.Runner, error) {
		r, ok := reloader.Current().(builder.Runner)
		if !ok {
			return nil, fmt.Errorf("app: reloader holds no runnable pipeline")
		}
		return r, nil
	}, store, prom, logger)

	addr := fmt.Sprintf("%s:%d", cfg.DashboardHost, cfg.DashboardPort)
	server := httpapi.New(addr, store, logger, tracer)

	return &App{
		cfg:            cfg,
		logger:         logger,
		store:          store,
		prom:           prom,
		tracerProvider: provider,
		reloader:       reloader,
		monitor:        monitor,
		http:           server,
	}, nil
}

// Run starts the folder monitor, the hot-reload watcher, and the HTTP
// server, then blocks until ctx is canceled (by a signal handler in
// cmd/streamgraphd, typically). It returns after every component has
// shut down cleanly.
func (a *App) Run(ctx context.Context) error {
	if err := a.reloader.Start(); err != nil {
		return fmt.Errorf("starting config watcher: %w", err)
	}
	if err := a.monitor.Start(ctx); err != nil {
		return fmt.Errorf("starting folder monitor: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.http.ListenAndServe()
	}()

	a.logger.WithFields(logrus.Fields{
		"component":  "app",
		"base_dir":   a.cfg.BaseDir,
		"dashboard":  fmt.Sprintf("%s:%d", a.cfg.DashboardHost, a.cfg.DashboardPort),
	}).Info("streamgraph running")

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			a.logger.WithError(err).Error("http server exited unexpectedly")
		}
	}

	return a.shutdown()
}

func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var firstErr error
	if err := a.http.Shutdown(shutdownCtx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.monitor.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := a.reloader.Stop(); err != nil && firstErr == nil {
		firstErr = err
	}
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
