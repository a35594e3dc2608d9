package simulation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	indexLabel = "index"
)

var (
	particlesStuck = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snowflake_particles_total",
		Help: "The number of particles that stuck to the flake.",
	}, []string{
		indexLabel,
	})

	pointsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snowflake_points_total",
		Help: "The number of points added to the flake, symmetric images included.",
	}, []string{
		indexLabel,
	})

	walkStepsTaken = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snowflake_walk_steps_total",
		Help: "The number of random walk steps taken by particles.",
	}, []string{
		indexLabel,
	})

	particlesRespawned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snowflake_respawns_total",
		Help: "The number of particles respawned after leaving the kill radius.",
	}, []string{
		indexLabel,
	})

	flakeFarthestDistance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "snowflake_farthest_distance",
		Help: "The largest distance from the origin over every point of the flake.",
	}, []string{
		indexLabel,
	})

	particleStepsHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snowflake_particle_steps",
		Help:    "The number of walk steps a particle takes before it sticks.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 16),
	}, []string{
		indexLabel,
	})
)

func instrumentParticle(index string, steps, respawns, added int, farthest float64) {
	labels := prometheus.Labels{
		indexLabel: index,
	}

	particlesStuck.With(labels).Inc()
	pointsAdded.With(labels).Add(float64(added))
	walkStepsTaken.With(labels).Add(float64(steps))
	particlesRespawned.With(labels).Add(float64(respawns))
	flakeFarthestDistance.With(labels).Set(farthest)
	particleStepsHistogram.With(labels).Observe(float64(steps))
}

func instrumentSeed(index string) {
	pointsAdded.With(prometheus.Labels{
		indexLabel: index,
	}).Inc()
}
