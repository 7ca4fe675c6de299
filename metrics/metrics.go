// Package metrics exposes the Prometheus collectors recorded by the managers and the notification dispatcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OwnershipTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carnival_ownership_transitions_total",
		Help: "Ownership operations by operation and result.",
	}, []string{"operation", "result"})

	RegistrationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carnival_registration_transitions_total",
		Help: "Attendance registration operations by operation and result.",
	}, []string{"operation", "result"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carnival_notifications_total",
		Help: "Notification jobs by kind and result (sent, failed, dropped, skipped).",
	}, []string{"kind", "result"})

	NotificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carnival_notification_queue_depth",
		Help: "Notification jobs waiting to be delivered.",
	})

	NotificationDeliverySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "carnival_notification_delivery_seconds",
		Help:    "Time spent delivering a notification, including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

// Result returns the label used for an operation outcome: "success" or the error kind.
func Result(success bool, kind string) string {
	if success {
		return "success"
	}
	if kind == "" {
		return "error"
	}
	return kind
}
