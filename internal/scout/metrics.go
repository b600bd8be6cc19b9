package scout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var remindersCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "scout_reminders_created_total",
	Help: "Total number of reminder records created by generation passes.",
})
