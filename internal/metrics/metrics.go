// Package metrics exposes the process's own Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lepusmon",
		Subsystem: "detector",
		Name:      "poll_cycles_total",
		Help:      "Detection cycles run, partitioned by outcome.",
	}, []string{"outcome"})

	ActiveAlerts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lepusmon",
		Subsystem: "alerts",
		Name:      "active",
		Help:      "Currently active alerts by server and severity.",
	}, []string{"server_id", "severity"})

	AlertsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lepusmon",
		Subsystem: "alerts",
		Name:      "opened_total",
		Help:      "Alerts that transitioned to active, by severity.",
	}, []string{"severity"})

	AlertsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lepusmon",
		Subsystem: "alerts",
		Name:      "resolved_total",
		Help:      "Alerts that transitioned to resolved.",
	})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lepusmon",
		Subsystem: "notify",
		Name:      "deliveries_total",
		Help:      "Notification delivery attempts by channel type and outcome.",
	}, []string{"channel", "outcome"})

	DeliveryAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lepusmon",
		Subsystem: "notify",
		Name:      "delivery_attempts",
		Help:      "Attempts needed per delivery, including the first try.",
		Buckets:   []float64{1, 2, 3, 4},
	}, []string{"channel"})
)

// Handler serves the registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
