package models

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	worldLabel = "world"
	kindLabel  = "kind"
)

var (
	worldCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "world_count",
		Help: "The number of worlds.",
	})

	worldCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "world_count_total",
		Help: "The total number of worlds.",
	})

	worldBodies = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "world_bodies",
		Help: "The number of bodies in a world.",
	}, []string{worldLabel})

	worldBodiesAddedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "world_bodies_added_total",
		Help: "The total number of bodies added to worlds by kind.",
	}, []string{kindLabel})

	worldStepLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "world_step_latency",
		Help: "The time to integrate the bodies of a world and update its quadtree.",
	}, []string{worldLabel})
)

func instrumentIncreaseWorldGauge() {
	worldCount.Inc()
}

func instrumentDecreaseWorldGauge() {
	worldCount.Dec()
}

func instrumentCountWorld() {
	worldCountTotal.Inc()
}

func instrumentWorldBodies(worldUUID string, count int) {
	worldBodies.
		With(prometheus.Labels{worldLabel: worldUUID}).
		Set(float64(count))
}

func instrumentDeleteWorldBodies(worldUUID string) {
	worldBodies.Delete(prometheus.Labels{worldLabel: worldUUID})
	worldStepLatency.Delete(prometheus.Labels{worldLabel: worldUUID})
}

func instrumentCountBody(kind BodyKind) {
	worldBodiesAddedTotal.
		With(prometheus.Labels{kindLabel: string(kind)}).
		Inc()
}

func instrumentStepLatency(worldUUID string, start time.Time) {
	worldStepLatency.
		With(prometheus.Labels{worldLabel: worldUUID}).
		Observe(time.Since(start).Seconds())
}
