package contact

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	typeLabel = "type"
)

var (
	contactEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contact_events",
		Help: "The number of contact events by type.",
	}, []string{typeLabel})
)

func instrumentEvents(events []Event) {
	for _, e := range events {
		contactEvents.
			With(prometheus.Labels{typeLabel: string(e.Type)}).
			Inc()
	}
}
