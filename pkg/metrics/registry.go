// Package metrics exports Prometheus metrics for prereqgraph.
//
// [Registry] implements every hook interface of package observability, so a
// single value wired at startup instruments the pipeline, running layouts,
// server sessions, the cache and outgoing HTTP calls:
//
//	reg := metrics.NewRegistry()
//	reg.Install()
//	http.Handle("/metrics", reg.Handler())
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/prereqgraph/pkg/observability"
)

const namespace = "prereqgraph"

// Registry holds all metrics for the application.
type Registry struct {
	// Pipeline
	PipelineStageDuration *prometheus.HistogramVec
	PipelineErrorsTotal   *prometheus.CounterVec
	GraphNodes            prometheus.Gauge
	GraphColumns          prometheus.Gauge
	LevelFallbacksTotal   prometheus.Counter

	// Layout
	LayoutTicksTotal    prometheus.Counter
	LayoutTickDuration  prometheus.Histogram
	LayoutAlpha         prometheus.Gauge
	DragEventsTotal     *prometheus.CounterVec
	ColumnChangesTotal  prometheus.Counter
	LayoutTicksToSettle prometheus.Histogram

	// Server sessions
	SessionsActive      prometheus.Gauge
	SessionsOpenedTotal prometheus.Counter
	StreamClientsActive prometheus.Gauge

	// Cache
	CacheRequestsTotal *prometheus.CounterVec
	CacheWrittenBytes  *prometheus.CounterVec

	// Outgoing HTTP
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec
	UpstreamErrorsTotal     *prometheus.CounterVec

	// Served HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewRegistry creates a registry with every metric registered, plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.initPipelineMetrics()
	r.initLayoutMetrics()
	r.initSessionMetrics()
	r.initCacheMetrics()
	r.initHTTPMetrics()
	return r
}

// Prometheus returns the underlying prometheus registry.
func (r *Registry) Prometheus() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Install registers r as the process-wide observability hooks.
func (r *Registry) Install() {
	observability.SetPipelineHooks(r)
	observability.SetLayoutHooks(r)
	observability.SetSessionHooks(r)
	observability.SetCacheHooks(r)
	observability.SetHTTPHooks(r)
}

func (r *Registry) initPipelineMetrics() {
	f := promauto.With(r.registry)
	r.PipelineStageDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	r.PipelineErrorsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_errors_total",
			Help:      "Pipeline stage failures",
		},
		[]string{"stage"},
	)
	r.GraphNodes = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_nodes",
		Help:      "Node count of the most recently loaded graph",
	})
	r.GraphColumns = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_columns",
		Help:      "Column count of the most recent leveling",
	})
	r.LevelFallbacksTotal = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "level_fallbacks_total",
		Help:      "Nodes placed in column 0 because leveling never reached them",
	})
}

func (r *Registry) initLayoutMetrics() {
	f := promauto.With(r.registry)
	r.LayoutTicksTotal = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "layout_ticks_total",
		Help:      "Simulation ticks executed",
	})
	r.LayoutTickDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "layout_tick_duration_seconds",
		Help:      "Duration of one simulation tick",
		Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 8),
	})
	r.LayoutAlpha = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "layout_alpha",
		Help:      "Alpha after the most recent tick",
	})
	r.DragEventsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drag_events_total",
			Help:      "Drag events by phase",
		},
		[]string{"phase"},
	)
	r.ColumnChangesTotal = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "column_changes_total",
		Help:      "Nodes moved to a different column by a drag",
	})
	r.LayoutTicksToSettle = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "layout_ticks_to_settle",
		Help:      "Ticks a batch layout ran before settling",
		Buckets:   prometheus.LinearBuckets(50, 50, 10),
	})
}

func (r *Registry) initSessionMetrics() {
	f := promauto.With(r.registry)
	r.SessionsActive = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Open layout sessions",
	})
	r.SessionsOpenedTotal = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_opened_total",
		Help:      "Layout sessions opened",
	})
	r.StreamClientsActive = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_clients_active",
		Help:      "Connected websocket stream clients",
	})
}

func (r *Registry) initCacheMetrics() {
	f := promauto.With(r.registry)
	r.CacheRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by key type and result",
		},
		[]string{"key_type", "result"},
	)
	r.CacheWrittenBytes = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache",
		},
		[]string{"key_type"},
	)
}

func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)
	r.UpstreamRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Outgoing HTTP requests",
		},
		[]string{"method", "host", "status"},
	)
	r.UpstreamRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Outgoing HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "host"},
	)
	r.UpstreamErrorsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Outgoing HTTP requests that failed without a response",
		},
		[]string{"method", "host"},
	)
	r.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Served HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	r.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Served HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}
