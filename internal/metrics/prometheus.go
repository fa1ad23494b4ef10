package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusBridge mirrors Store mutations into Prometheus collectors
// so the engine can be scraped at /metrics in addition to the JSON
// endpoints. It is purely additive: the JSON endpoints always read
// from Store directly and never from these collectors.
type PrometheusBridge struct {
	linesIn    *prometheus.CounterVec
	linesOut   *prometheus.CounterVec
	errors     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	unproc     prometheus.Gauge
	inFlight   prometheus.Gauge
	processed  prometheus.Gauge
}

// NewPrometheusBridge registers the engine's collectors against reg.
// Pass prometheus.DefaultRegisterer to expose them on the default
// /metrics handler.
func NewPrometheusBridge(reg prometheus.Registerer) *PrometheusBridge {
	factory := promauto.With(reg)
	return &PrometheusBridge{
		linesIn: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgraph_processor_lines_in_total",
			Help: "Lines consumed by a processor.",
		}, []string{"processor_id"}),
		linesOut: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgraph_processor_lines_out_total",
			Help: "Lines emitted by a processor.",
		}, []string{"processor_id"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgraph_processor_errors_total",
			Help: "Errors raised by a processor.",
		}, []string{"processor_id"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamgraph_processor_duration_seconds",
			Help:    "Per-call processing duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"processor_id"}),
		unproc: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streamgraph_files_unprocessed",
			Help: "Files currently waiting in the ingress directory.",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streamgraph_files_in_flight",
			Help: "Files currently claimed by a worker.",
		}),
		processed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streamgraph_files_processed",
			Help: "Files currently in the processed directory.",
		}),
	}
}

func (b *PrometheusBridge) ObserveLineIn(processorID string) {
	b.linesIn.WithLabelValues(processorID).Inc()
}

func (b *PrometheusBridge) ObserveLineOut(processorID string) {
	b.linesOut.WithLabelValues(processorID).Inc()
}

func (b *PrometheusBridge) ObserveError(processorID string) {
	b.errors.WithLabelValues(processorID).Inc()
}

func (b *PrometheusBridge) ObserveDuration(processorID string, d time.Duration) {
	b.duration.WithLabelValues(processorID).Observe(d.Seconds())
}

func (b *PrometheusBridge) ObserveFileCounts(unprocessed, inFlight, processed int) {
	b.unproc.Set(float64(unprocessed))
	b.inFlight.Set(float64(inFlight))
	b.processed.Set(float64(processed))
}
