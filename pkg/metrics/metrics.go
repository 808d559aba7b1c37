package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
	ErrorTotal      *prometheus.CounterVec

	// Prescription metrics
	PrescriptionOperations *prometheus.CounterVec

	// Drug interaction lookup metrics
	DrugLookups       *prometheus.CounterVec
	DrugLookupLatency prometheus.Histogram

	// Auth metrics
	AuthEvents *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on reg. Passing
// a fresh registry keeps tests independent of the global one.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path", "status"}),
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		ErrorTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of HTTP error responses",
		}, []string{"method", "path", "class"}),

		PrescriptionOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prescription",
			Name:      "operations_total",
			Help:      "Total number of prescription operations by outcome",
		}, []string{"operation", "status"}),

		DrugLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drug_interaction",
			Name:      "lookups_total",
			Help:      "Total number of drug interaction lookups",
		}, []string{"source", "status"}),
		DrugLookupLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "drug_interaction",
			Name:      "upstream_duration_seconds",
			Help:      "Duration of upstream drug interaction requests",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		AuthEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Total number of authentication events",
		}, []string{"event", "status"}),
	}
}

// Outcome converts an error into a metric status label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
