// Package metrics exposes evolution progress as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so several runs in one process (and tests)
// do not collide on the global one. A nil *Recorder is a no-op.
type Recorder struct {
	registry    *prometheus.Registry
	generations prometheus.Counter
	trials      prometheus.Counter
	best        prometheus.Gauge
	mean        prometheus.Gauge
	evalSeconds prometheus.Histogram
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canbot_generations_total",
			Help: "Generations evaluated.",
		}),
		trials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canbot_trials_total",
			Help: "Simulator trials run.",
		}),
		best: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "canbot_best_fitness",
			Help: "Best normalised fitness of the latest generation.",
		}),
		mean: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "canbot_mean_fitness",
			Help: "Mean normalised fitness of the latest generation.",
		}),
		evalSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "canbot_generation_eval_seconds",
			Help:    "Wall time spent evaluating one generation.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	r.registry.MustRegister(r.generations, r.trials, r.best, r.mean, r.evalSeconds)
	return r
}

func (r *Recorder) ObserveGeneration(trials int, best, mean float64, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.generations.Inc()
	r.trials.Add(float64(trials))
	r.best.Set(best)
	r.mean.Set(mean)
	r.evalSeconds.Observe(elapsed.Seconds())
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
