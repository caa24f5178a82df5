package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global collector instance for singleton pattern
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Build metrics
	BuildsTotal   *prometheus.CounterVec
	BuildDuration prometheus.Histogram
	PairsScored   prometheus.Counter

	// Layout metrics
	LayoutRuns     *prometheus.CounterVec
	LayoutDuration prometheus.Histogram

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Graph state
	NodesCurrent prometheus.Gauge
	EdgesCurrent prometheus.Gauge
}

// NewCollector creates a metrics collector with the given namespace.
// Singleton to avoid duplicate registration across tests.
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_builds_total",
				Help:      "Graph builds by result",
			},
			[]string{"result", "mode"},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_build_duration_seconds",
				Help:      "Graph build latency",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		PairsScored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relationship_pairs_scored_total",
				Help:      "Item pairs run through the relationship scorer",
			},
		),
		LayoutRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layout_runs_total",
				Help:      "Layout runs by kind (full or region)",
			},
			[]string{"kind"},
		),
		LayoutDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layout_duration_seconds",
				Help:      "Layout simulation latency",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
			},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layout_cache_hits_total",
				Help:      "Layout cache restores with matching fingerprint",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layout_cache_misses_total",
				Help:      "Layout cache restores that missed",
			},
		),
		NodesCurrent: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_nodes",
				Help:      "Nodes in the current graph snapshot",
			},
		),
		EdgesCurrent: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "graph_edges",
				Help:      "Edges in the current graph snapshot",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.BuildsTotal, c.BuildDuration, c.PairsScored,
		c.LayoutRuns, c.LayoutDuration,
		c.CacheHits, c.CacheMisses,
		c.NodesCurrent, c.EdgesCurrent,
	)

	globalCollector = c
	return c
}

// Registry exposes the collector's registry for the /metrics handler
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveBuild records one build outcome
func (c *Collector) ObserveBuild(result, mode string, pairs int, duration time.Duration) {
	c.BuildsTotal.WithLabelValues(result, mode).Inc()
	if result == "success" {
		c.BuildDuration.Observe(duration.Seconds())
	}
	c.PairsScored.Add(float64(pairs))
}

// ObserveLayout records one layout run
func (c *Collector) ObserveLayout(kind string, duration time.Duration) {
	c.LayoutRuns.WithLabelValues(kind).Inc()
	c.LayoutDuration.Observe(duration.Seconds())
}
