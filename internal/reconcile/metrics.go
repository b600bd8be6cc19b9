package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var reconcilerUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reconciler_updates_total",
	Help: "Status events applied to reminders, labelled by resulting state.",
}, []string{"result"})
