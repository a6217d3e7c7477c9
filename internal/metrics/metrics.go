package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	HTTPRequests       *prometheus.CounterVec
	HTTPLatency        *prometheus.HistogramVec
	StoreOperations    *prometheus.CounterVec
	StoreLatency       *prometheus.HistogramVec
	PanelRequests      *prometheus.CounterVec
	PanelLatency       *prometheus.HistogramVec
	WAOutgoingMessages *prometheus.CounterVec
	MessagesRecorded   *prometheus.CounterVec
	Errors             *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total API requests by method, route and status.",
			}, []string{"method", "route", "status"}),
			HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency distribution for API requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route"}),
			StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total record store operations by table, operation and outcome.",
			}, []string{"table", "op", "status"}),
			StoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Latency distribution for record store operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"table", "op"}),
			PanelRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panel_requests_total",
				Help:      "Total subscriber panel API requests by endpoint and status.",
			}, []string{"endpoint", "status"}),
			PanelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "panel_request_duration_seconds",
				Help:      "Latency distribution for subscriber panel API requests.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"endpoint", "status"}),
			WAOutgoingMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "wa_outgoing_messages_total",
				Help:      "Total outgoing WhatsApp messages sent.",
			}, []string{"type"}),
			MessagesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_recorded_total",
				Help:      "Total client messages written to history by delivery status.",
			}, []string{"status"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.HTTPRequests,
			metricsInstance.HTTPLatency,
			metricsInstance.StoreOperations,
			metricsInstance.StoreLatency,
			metricsInstance.PanelRequests,
			metricsInstance.PanelLatency,
			metricsInstance.WAOutgoingMessages,
			metricsInstance.MessagesRecorded,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
