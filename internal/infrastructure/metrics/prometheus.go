package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/garyjia/perdin/internal/domain/event"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	TripEvents       *prometheus.CounterVec
	AllowanceRules   *prometheus.CounterVec
	AllowanceTotal   *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPRequestTimes *prometheus.HistogramVec
}

// NewMetrics creates prometheus metrics on a private registry
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TripEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trip_events_total",
			Help:      "The total number of trip events by type",
		}, []string{"type"}),
		AllowanceRules: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trip_allowance_rule_total",
			Help:      "The total number of submitted trips by allowance rule",
		}, []string{"rule"}),
		AllowanceTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trip_allowance_rupiah_total",
			Help:      "Sum of trip allowances in rupiah by event type",
		}, []string{"type"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "The total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestTimes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken to serve HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// HandleTripEvent records a trip event. It matches the dispatcher handler signature.
func (m *Metrics) HandleTripEvent(_ context.Context, evt *event.Event) error {
	m.TripEvents.WithLabelValues(evt.Type.String()).Inc()

	if evt.Type == event.TypeTripSubmitted {
		if rule := evt.GetPayloadString("allowance_rule"); rule != "" {
			m.AllowanceRules.WithLabelValues(rule).Inc()
		}
	}

	if raw := evt.GetPayloadString("total_allowance"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err == nil && amount.IsPositive() {
			m.AllowanceTotal.WithLabelValues(evt.Type.String()).Add(amount.InexactFloat64())
		}
	}
	return nil
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestTimes.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
