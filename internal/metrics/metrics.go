// Package metrics collects Prometheus metrics for API calls, session
// transitions and dashboard load cycles.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is implemented by Collector and Nop. The client, session store and
// dashboard aggregator each take one.
type Recorder interface {
	RecordRequest(method, outcome string, status int, d time.Duration)
	RecordSessionTransition(status string)
	RecordDashboardLoad(outcome string, d time.Duration)
}

// Dashboard load outcomes.
const (
	LoadOK         = "ok"
	LoadError      = "error"
	LoadSuperseded = "superseded"
)

// Collector records metrics into a Prometheus registry.
type Collector struct {
	requests       *prometheus.CounterVec
	statusCodes    *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	transitions    *prometheus.CounterVec
	loads          *prometheus.CounterVec
	loadLatency    prometheus.Histogram
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradedesk_api_requests_total",
			Help: "API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		statusCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradedesk_api_status_total",
			Help: "API responses by HTTP status code.",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradedesk_api_request_duration_seconds",
			Help:    "API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradedesk_session_transitions_total",
			Help: "Session status transitions by target status.",
		}, []string{"status"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradedesk_dashboard_loads_total",
			Help: "Dashboard load cycles by outcome.",
		}, []string{"outcome"}),
		loadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradedesk_dashboard_load_duration_seconds",
			Help:    "Dashboard load cycle latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.requests,
		c.statusCodes,
		c.requestLatency,
		c.transitions,
		c.loads,
		c.loadLatency,
	)

	return c
}

// RecordRequest records one completed API call. status is 0 when no response arrived.
func (c *Collector) RecordRequest(method, outcome string, status int, d time.Duration) {
	c.requests.WithLabelValues(method, outcome).Inc()
	if status > 0 {
		c.statusCodes.WithLabelValues(strconv.Itoa(status)).Inc()
	}
	c.requestLatency.WithLabelValues(method).Observe(d.Seconds())
}

// RecordSessionTransition records a session store status change.
func (c *Collector) RecordSessionTransition(status string) {
	c.transitions.WithLabelValues(status).Inc()
}

// RecordDashboardLoad records the end of a load cycle.
func (c *Collector) RecordDashboardLoad(outcome string, d time.Duration) {
	c.loads.WithLabelValues(outcome).Inc()
	c.loadLatency.Observe(d.Seconds())
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordSessionTransition(string)                   {}
func (Nop) RecordDashboardLoad(string, time.Duration)        {}
