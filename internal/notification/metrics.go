package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sendOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifier_send_outcomes_total",
		Help: "Send attempts by delivery mode and outcome string.",
	}, []string{"mode", "outcome"})

	queueSaturated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_queue_saturated_total",
		Help: "Deliveries returned to the channel because the task queue was full.",
	})

	statusPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifier_status_publish_failures_total",
		Help: "Status events that could not be published after a send attempt.",
	})
)
