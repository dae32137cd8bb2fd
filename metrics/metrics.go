// Package metrics exposes the Prometheus collectors of the rate pipeline
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sig-0/kursrates/storage/types"
	"github.com/sig-0/kursrates/summary"
)

const namespace = "kursrates"

const (
	statusSuccess = "success"
	statusFailure = "failure"

	boundMin = "min"
	boundMax = "max"
)

// Metrics holds the pipeline collectors, on a dedicated registry
type Metrics struct {
	registry *prometheus.Registry

	tokens       *prometheus.CounterVec
	runs         *prometheus.CounterVec
	lastRun      *prometheus.GaugeVec
	rates        *prometheus.GaugeVec
	found        *prometheus.GaugeVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a new metrics instance, with all collectors registered
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	return &Metrics{
		registry: registry,
		tokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "aggregator",
				Name:      "tokens_total",
				Help:      "Total number of processed rate tokens, by outcome.",
			},
			[]string{"group", "outcome"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "runs_total",
				Help:      "Total number of provider runs, by status.",
			},
			[]string{"provider", "status"},
		),
		lastRun: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful provider run.",
			},
			[]string{"provider"},
		),
		rates: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "summary",
				Name:      "rate",
				Help:      "Most recent extreme rate, by group and bound.",
			},
			[]string{"source", "group", "bound"},
		),
		found: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "summary",
				Name:      "group_found",
				Help:      "1 if the most recent summary found a valid rate for the group.",
			},
			[]string{"source", "group"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "route"},
		),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registered metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveToken records the outcome of a single processed rate token
func (m *Metrics) ObserveToken(group types.Group, outcome summary.Outcome) {
	m.tokens.WithLabelValues(group.String(), outcome.String()).Inc()
}

// ObserveRun records a finished provider run
func (m *Metrics) ObserveRun(provider string, err error) {
	if err != nil {
		m.runs.WithLabelValues(provider, statusFailure).Inc()

		return
	}

	m.runs.WithLabelValues(provider, statusSuccess).Inc()
	m.lastRun.WithLabelValues(provider).SetToCurrentTime()
}

// ObserveSummary records the extremes of the latest summary.
// Extremes of groups without a valid rate are removed
func (m *Metrics) ObserveSummary(s *types.Summary) {
	if s == nil {
		return
	}

	m.observeGroup(s.Source, types.GroupPurchase, s.Purchase)
	m.observeGroup(s.Source, types.GroupSale, s.Sale)
}

func (m *Metrics) observeGroup(source types.Source, group types.Group, res types.GroupResult) {
	var (
		src = source.String()
		grp = group.String()
	)

	if !res.Found || res.Min == nil || res.Max == nil {
		m.found.WithLabelValues(src, grp).Set(0)
		m.rates.DeleteLabelValues(src, grp, boundMin)
		m.rates.DeleteLabelValues(src, grp, boundMax)

		return
	}

	m.found.WithLabelValues(src, grp).Set(1)
	m.rates.WithLabelValues(src, grp, boundMin).Set(*res.Min)
	m.rates.WithLabelValues(src, grp, boundMax).Set(*res.Max)
}

// Instrument wraps the handler with HTTP request metrics.
// Requests are labeled by their chi route pattern
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			ww    = middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start = time.Now()
		)

		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
