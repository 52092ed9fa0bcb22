// Package metrics exposes Prometheus instruments on a private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/exposure-tracker/constants"
)

const namespace = "exposure_tracker"

// Recorder owns every instrument. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	importRows     *prometheus.CounterVec
	importFailures *prometheus.CounterVec
	statuses       *prometheus.CounterVec
	drafts         *prometheus.CounterVec
	draftLatency   *prometheus.HistogramVec
	queueDepth     prometheus.Gauge
	rpcs           *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "import_rows_total",
			Help: "Imported rows by kind and outcome.",
		}, []string{"kind", "outcome"}),
		importFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "import_failures_total",
			Help: "Rejected imports by kind and error kind.",
		}, []string{"kind", "error"}),
		statuses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "evaluated_results_total",
			Help: "Result classifications by status.",
		}, []string{"status"}),
		drafts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "drafts_total",
			Help: "Drafting calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		draftLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "draft_duration_seconds",
			Help:    "Drafting latency.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		}, []string{"kind"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "queue_depth",
			Help: "Jobs waiting in the background queue.",
		}),
		rpcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rpc_requests_total",
			Help: "gRPC requests by method and code.",
		}, []string{"method", "code"}),
	}
	reg.MustRegister(
		r.importRows, r.importFailures, r.statuses, r.drafts, r.draftLatency, r.queueDepth, r.rpcs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) ImportRows(kind constants.ImportKind, outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.importRows.WithLabelValues(string(kind), outcome).Add(float64(n))
}

func (r *Recorder) ImportFailed(kind constants.ImportKind, errorKind string) {
	if r == nil {
		return
	}
	r.importFailures.WithLabelValues(string(kind), errorKind).Inc()
}

func (r *Recorder) Evaluated(status constants.ResultStatus) {
	if r == nil {
		return
	}
	r.statuses.WithLabelValues(string(status)).Inc()
}

func (r *Recorder) Draft(kind, outcome string, seconds float64) {
	if r == nil {
		return
	}
	r.drafts.WithLabelValues(kind, outcome).Inc()
	r.draftLatency.WithLabelValues(kind).Observe(seconds)
}

func (r *Recorder) QueueDepth(n int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(n))
}

func (r *Recorder) RPC(method, code string) {
	if r == nil {
		return
	}
	r.rpcs.WithLabelValues(method, code).Inc()
}
