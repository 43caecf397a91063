// Package metrics exposes request and watch-run counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records transport and run metrics. It implements fetch.Observer.
type Collector struct {
	requests      *prometheus.CounterVec
	networkErrors *prometheus.CounterVec
	latency       prometheus.Histogram
	runs          prometheus.Counter
	sourceErrors  prometheus.Counter
	postsSaved    prometheus.Counter
}

// NewCollector registers every metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "substack_requests_total",
			Help: "Requests answered by the platform, by method and status code.",
		}, []string{"method", "status_code"}),
		networkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "substack_network_errors_total",
			Help: "Requests that got no HTTP status (timeout or connection failure).",
		}, []string{"method"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "substack_request_latency_seconds",
			Help:    "Latency of answered requests.",
			Buckets: prometheus.DefBuckets,
		}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "substack_watch_runs_total",
			Help: "Completed watch runs.",
		}),
		sourceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "substack_watch_source_errors_total",
			Help: "Newsletters whose listing failed during a run.",
		}),
		postsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "substack_watch_posts_saved_total",
			Help: "New posts stored or buffered by watch runs.",
		}),
	}
	reg.MustRegister(c.requests, c.networkErrors, c.latency, c.runs, c.sourceErrors, c.postsSaved)
	return c
}

func (c *Collector) ObserveResponse(method string, status int, elapsed time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.latency.Observe(elapsed.Seconds())
}

func (c *Collector) ObserveError(method string) {
	c.networkErrors.WithLabelValues(method).Inc()
}

// RecordRun records one finished run.
func (c *Collector) RecordRun(sourceErrors, postsSaved int) {
	c.runs.Inc()
	c.sourceErrors.Add(float64(sourceErrors))
	c.postsSaved.Add(float64(postsSaved))
}

// Handler serves /metrics for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
