// Package metrics exposes Prometheus metrics for HTTP traffic, ledger
// mutations and maintenance jobs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aristath/stockledger/internal/events"
)

const namespace = "stockledger"

// Metrics owns a private registry and the collectors registered on it
type Metrics struct {
	registry     *prometheus.Registry
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	ledgerEvents *prometheus.CounterVec
	jobRuns      *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
}

// New creates the registry, optionally with Go runtime and process collectors
func New(collectRuntime bool) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	if collectRuntime {
		_ = m.registry.Register(prometheus.NewGoCollector())
		_ = m.registry.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}

	m.httpRequests = m.newCounter("http_requests_total", "HTTP requests by route, method and status.",
		[]string{"route", "method", "status"})
	m.httpDuration = m.newHistogram("http_request_duration_seconds", "HTTP request latency by route.",
		[]string{"route", "method"}, prometheus.DefBuckets)
	m.ledgerEvents = m.newCounter("ledger_events_total", "Ledger events emitted by type.",
		[]string{"type"})
	m.jobRuns = m.newCounter("job_runs_total", "Maintenance job runs by outcome.",
		[]string{"job", "outcome"})
	m.jobDuration = m.newHistogram("job_duration_seconds", "Maintenance job duration.",
		[]string{"job"}, []float64{0.01, 0.1, 1, 5, 30, 120, 600})
	return m
}

func (m *Metrics) newCounter(name, help string, labels []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	m.registry.MustRegister(cv)
	return cv
}

func (m *Metrics) newHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	m.registry.MustRegister(hv)
	return hv
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by chi route
// pattern, so /api/stocks/{code} is one series rather than one per code.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// SubscribeEvents counts every event published on bus until the returned
// function is called.
func (m *Metrics) SubscribeEvents(bus *events.Bus) func() {
	return bus.Subscribe(func(e *events.Event) {
		m.ledgerEvents.WithLabelValues(string(e.Type)).Inc()
	})
}

// JobFinished implements scheduler.Observer
func (m *Metrics) JobFinished(name string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.jobRuns.WithLabelValues(name, outcome).Inc()
	m.jobDuration.WithLabelValues(name).Observe(duration.Seconds())
}
