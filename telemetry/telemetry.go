// Package telemetry reports stage executions through OpenTelemetry: one span
// per stage, plus a run counter and a duration histogram.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/julienvaslet/pypeline"
)

// ScopeName is the instrumentation scope used for the global providers.
const ScopeName = "github.com/julienvaslet/pypeline"

// Attribute keys set on spans and measurements
const (
	KeyPipeline = attribute.Key("pypeline.pipeline")
	KeyStage    = attribute.Key("pypeline.stage")
	KeyOrder    = attribute.Key("pypeline.stage.order")
	KeyIndex    = attribute.Key("pypeline.stage.index")
	KeyResult   = attribute.Key("pypeline.result")
)

func stageAttributes(stage pypeline.StageInfo) []attribute.KeyValue {
	return []attribute.KeyValue{
		KeyPipeline.String(stage.Pipeline),
		KeyStage.String(stage.Name),
	}
}

// Tracing creates a middleware starting one span per stage. A nil tracer
// uses the global tracer provider.
func Tracing(tracer trace.Tracer) pypeline.StageMiddleware {
	if tracer == nil {
		tracer = otel.Tracer(ScopeName)
	}

	return func(next pypeline.StageRunnerFunc) pypeline.StageRunnerFunc {
		return func(ctx context.Context, stage pypeline.StageInfo, logger pypeline.Logger) error {
			attrs := append(stageAttributes(stage),
				KeyOrder.Int64(stage.Order),
				KeyIndex.Int(stage.Index),
			)
			ctx, span := tracer.Start(ctx, "stage "+stage.Name, trace.WithAttributes(attrs...))
			defer span.End()

			err := next(ctx, stage, logger)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			span.SetStatus(codes.Ok, "")
			return nil
		}
	}
}

// Instruments holds the stage metric instruments.
type Instruments struct {
	runs     metric.Int64Counter
	duration metric.Float64Histogram
}

// NewInstruments creates the instruments from meter. A nil meter uses the
// global meter provider.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	if meter == nil {
		meter = otel.Meter(ScopeName)
	}

	runs, err := meter.Int64Counter("pypeline.stage.runs",
		metric.WithDescription("Number of stage executions."),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("pypeline.stage.duration",
		metric.WithDescription("Duration of stage executions."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{runs: runs, duration: duration}, nil
}

// Middleware records every stage it wraps.
func (in *Instruments) Middleware() pypeline.StageMiddleware {
	return func(next pypeline.StageRunnerFunc) pypeline.StageRunnerFunc {
		return func(ctx context.Context, stage pypeline.StageInfo, logger pypeline.Logger) error {
			start := time.Now()
			err := next(ctx, stage, logger)

			attrs := stageAttributes(stage)
			in.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))

			result := "success"
			if err != nil {
				result = "failure"
			}
			in.runs.Add(ctx, 1, metric.WithAttributes(append(attrs, KeyResult.String(result))...))

			return err
		}
	}
}
