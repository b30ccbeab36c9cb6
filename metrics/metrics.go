// Package metrics exports training progress to Prometheus.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sw965/heuristune/ga"
)

const namespace = "heuristune"

type Metrics struct {
	// GenerationsTotal counts evaluated generations.
	GenerationsTotal prometheus.Counter
	// BestFitness is the best fitness of the latest generation.
	BestFitness prometheus.Gauge
	// BestSoFar is the best fitness over the whole run.
	BestSoFar     prometheus.Gauge
	MeanFitness   prometheus.Gauge
	StdDevFitness prometheus.Gauge
	// GenerationSeconds measures wall time per generation.
	GenerationSeconds prometheus.Histogram

	mu   sync.Mutex
	seen bool
	best float64
}

// New registers the training metrics on reg. Every series carries run_id.
func New(reg prometheus.Registerer, runID string) *Metrics {
	f := promauto.With(reg)
	labels := prometheus.Labels{"run_id": runID}
	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "ga",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	return &Metrics{
		GenerationsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "ga",
			Name:        "generations_total",
			Help:        "Number of evaluated generations",
			ConstLabels: labels,
		}),
		BestFitness:   gauge("best_fitness", "Best fitness of the latest generation"),
		BestSoFar:     gauge("best_so_far_fitness", "Best fitness seen in the run"),
		MeanFitness:   gauge("mean_fitness", "Mean fitness of the latest generation"),
		StdDevFitness: gauge("stddev_fitness", "Standard deviation of fitness in the latest generation"),
		GenerationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "ga",
			Name:        "generation_seconds",
			Help:        "Wall time spent per generation",
			Buckets:     prometheus.ExponentialBuckets(0.01, 4, 8),
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) Observe(stats ga.GenerationStats, elapsed time.Duration) {
	m.GenerationsTotal.Inc()
	m.BestFitness.Set(stats.Best)
	m.MeanFitness.Set(stats.Mean)
	m.StdDevFitness.Set(stats.StdDev)
	m.GenerationSeconds.Observe(elapsed.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.seen || stats.Best > m.best {
		m.seen = true
		m.best = stats.Best
		m.BestSoFar.Set(stats.Best)
	}
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
