package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/julienvaslet/pypeline"
)

type Job struct {
	Fail bool `pipeline:"fail"`
}

var errFailed = errors.New("failed")

func (j *Job) Prepare(ctx context.Context) error {
	return nil
}

func (j *Job) Run(ctx context.Context) error {
	if j.Fail {
		return errFailed
	}
	return nil
}

func defineJob(t *testing.T, middleware ...pypeline.StageMiddleware) *pypeline.Definition[Job] {
	t.Helper()
	def, err := pypeline.Define[Job](pypeline.NewRegistry(), "Job", pypeline.WithMiddleware(middleware...)).
		Stage("Prepare", (*Job).Prepare).
		Stage("Run", (*Job).Run).
		Build()
	require.NoError(t, err)
	return def
}

func TestTracingRecordsStageSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	def := defineJob(t, Tracing(provider.Tracer("test")))
	err := def.MustNew(pypeline.Values{"fail": true}).Start(context.Background())
	assert.ErrorIs(t, err, errFailed)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "stage Prepare", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	assert.Equal(t, "stage Run", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "failed", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)

	attrs := make(map[string]any)
	for _, kv := range spans[1].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "Job", attrs[string(KeyPipeline)])
	assert.Equal(t, "Run", attrs[string(KeyStage)])
	assert.Equal(t, int64(2), attrs[string(KeyOrder)])
	assert.Equal(t, int64(1), attrs[string(KeyIndex)])
}

func TestInstrumentsRecordRuns(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	instruments, err := NewInstruments(provider.Meter("test"))
	require.NoError(t, err)

	def := defineJob(t, instruments.Middleware())
	require.NoError(t, def.MustNew(nil).Start(context.Background()))
	assert.ErrorIs(t, def.MustNew(pypeline.Values{"fail": true}).Start(context.Background()), errFailed)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := make(map[string]metricdata.Metrics)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	runs, ok := byName["pypeline.stage.runs"].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := make(map[string]int64)
	for _, dp := range runs.DataPoints {
		stage, _ := dp.Attributes.Value(KeyStage)
		result, _ := dp.Attributes.Value(KeyResult)
		counts[stage.AsString()+"/"+result.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{
		"Prepare/success": 2,
		"Run/success":     1,
		"Run/failure":     1,
	}, counts)

	duration, ok := byName["pypeline.stage.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)

	var samples uint64
	for _, dp := range duration.DataPoints {
		samples += dp.Count
	}
	assert.Equal(t, uint64(4), samples)
}
