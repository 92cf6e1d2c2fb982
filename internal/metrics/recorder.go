// Package metrics exposes evolutionary run progress as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"naptime/internal/evo"
)

const namespace = "naptime"

// Recorder keeps its collectors on a private registry so several runs in one
// process do not collide on the default registerer.
type Recorder struct {
	registry *prometheus.Registry

	generation  prometheus.Gauge
	fitnessMean prometheus.Gauge
	fitnessMax  prometheus.Gauge
	diversity   prometheus.Gauge
	evaluations prometheus.Counter
	abortedRuns prometheus.Counter
}

var _ evo.Observer = (*Recorder)(nil)

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		generation: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation",
			Help:      "Index of the last completed generation.",
		}),
		fitnessMean: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fitness_mean",
			Help:      "Mean fitness of the last completed generation.",
		}),
		fitnessMax: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fitness_max",
			Help:      "Best fitness of the last completed generation.",
		}),
		diversity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "population_diversity",
			Help:      "Distinct program fingerprints in the last completed generation.",
		}),
		evaluations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Simulator runs used to score individuals.",
		}),
		abortedRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aborted_runs_total",
			Help:      "Simulator runs stopped early by a program error.",
		}),
	}
}

func (r *Recorder) ObserveGeneration(_ context.Context, gen evo.Generation) error {
	r.generation.Set(float64(gen.Index))
	r.fitnessMean.Set(gen.Mean)
	r.fitnessMax.Set(gen.Max)
	r.diversity.Set(float64(gen.Diversity))
	r.evaluations.Add(float64(gen.Evaluations))
	r.abortedRuns.Add(float64(gen.AbortedRuns))
	return nil
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
