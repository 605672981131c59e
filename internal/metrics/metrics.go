// Package metrics holds the Prometheus collectors for checklist transitions,
// notification delivery and the HTTP layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// transitions counts engine operations.
	// Labels: operation (toggle, comment, complete_section, submit, reset), result (ok, blackout,
	// not_found, incomplete, storage, invalid)
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "castle",
		Subsystem: "checklist",
		Name:      "transitions_total",
		Help:      "Checklist state transitions by operation and result",
	}, []string{"operation", "result"})

	// recordsAppended counts completion records written.
	recordsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "castle",
		Subsystem: "checklist",
		Name:      "records_appended_total",
		Help:      "Completion records appended to the log",
	})

	// notifications counts per-sink delivery outcomes.
	// Labels: sink, result (ok, error, panic)
	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "castle",
		Subsystem: "notify",
		Name:      "deliveries_total",
		Help:      "Notification deliveries by sink and result",
	}, []string{"sink", "result"})

	notificationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "castle",
		Subsystem: "notify",
		Name:      "delivery_seconds",
		Help:      "Notification delivery latency per sink",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"sink"})

	// Labels: method, status (status class, e.g. 2xx)
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "castle",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method and status class",
	}, []string{"method", "status"})
)

func ObserveTransition(operation, result string) {
	transitions.WithLabelValues(operation, result).Inc()
}

func AddRecords(n int) {
	recordsAppended.Add(float64(n))
}

func ObserveDelivery(sink, result string, d time.Duration) {
	notifications.WithLabelValues(sink, result).Inc()
	notificationLatency.WithLabelValues(sink).Observe(d.Seconds())
}

func ObserveRequest(method string, status int) {
	httpRequests.WithLabelValues(method, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
