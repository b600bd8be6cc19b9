package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var schedulerProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "scheduler_reminders_processed_total",
	Help: "Reminders handled by dispatch passes, labelled by result.",
}, []string{"result"})
