// Package metrics exports stage execution metrics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/julienvaslet/pypeline"
)

const namespace = "pypeline"

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Collector counts stage runs and observes their durations.
type Collector struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
}

// NewCollector creates the stage metrics and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer. Metrics already registered
// by another collector are reused.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Number of stage executions by pipeline, stage and result.",
		}, []string{"pipeline", "stage", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of stage executions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"pipeline", "stage"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stages_in_flight",
			Help:      "Number of stages currently executing.",
		}, []string{"pipeline"}),
	}

	var err error
	if c.runs, err = register(reg, c.runs); err != nil {
		return nil, err
	}
	if c.duration, err = register(reg, c.duration); err != nil {
		return nil, err
	}
	if c.inFlight, err = register(reg, c.inFlight); err != nil {
		return nil, err
	}
	return c, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Middleware records every stage it wraps.
func (c *Collector) Middleware() pypeline.StageMiddleware {
	return func(next pypeline.StageRunnerFunc) pypeline.StageRunnerFunc {
		return func(ctx context.Context, stage pypeline.StageInfo, logger pypeline.Logger) error {
			gauge := c.inFlight.WithLabelValues(stage.Pipeline)
			gauge.Inc()
			defer gauge.Dec()

			start := time.Now()
			err := next(ctx, stage, logger)
			c.duration.WithLabelValues(stage.Pipeline, stage.Name).Observe(time.Since(start).Seconds())

			result := ResultSuccess
			if err != nil {
				result = ResultFailure
			}
			c.runs.WithLabelValues(stage.Pipeline, stage.Name, result).Inc()

			return err
		}
	}
}
