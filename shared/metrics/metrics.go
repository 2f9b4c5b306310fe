package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the blink engine
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	ActionsResolved     *prometheus.CounterVec
	OrdersInitiated     prometheus.Counter
	OrdersConfirmed     prometheus.Counter
	TransactionsBuilt   prometheus.Counter
	PrintsIndexed       prometheus.Counter

	// RateFallbacks counts conversions that proceeded with a zero
	// exchange rate after the rate source failed. Alert on this.
	RateFallbacks prometheus.Counter

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics(namespace, service string) *Metrics {
	labels := prometheus.Labels{"service": service}

	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ActionsResolved: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "actions_resolved_total",
				Help:        "Action descriptors resolved, by entity kind",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),
		OrdersInitiated: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "orders_initiated_total",
				Help:        "Orders created through blink purchase initiation",
				ConstLabels: labels,
			},
		),
		OrdersConfirmed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "orders_confirmed_total",
				Help:        "Orders confirmed and sent to fulfillment",
				ConstLabels: labels,
			},
		),
		TransactionsBuilt: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "transactions_built_total",
				Help:        "Unsigned transactions assembled",
				ConstLabels: labels,
			},
		),
		PrintsIndexed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "prints_indexed_total",
				Help:        "Print editions indexed after minting",
				ConstLabels: labels,
			},
		),
		RateFallbacks: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "rate_fallbacks_total",
				Help:        "Currency conversions degraded to a zero exchange rate",
				ConstLabels: labels,
			},
		),
		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "errors_total",
				Help:        "Errors by component",
				ConstLabels: labels,
			},
			[]string{"component"},
		),
	}
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
