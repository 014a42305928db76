package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func defineJob(t *testing.T, collector *Collector) *pypeline.Definition[Job] {
	t.Helper()
	def, err := pypeline.Define[Job](pypeline.NewRegistry(), "Job",
		pypeline.WithMiddleware(collector.Middleware()),
	).
		Stage("Prepare", (*Job).Prepare).
		Stage("Run", (*Job).Run).
		Build()
	require.NoError(t, err)
	return def
}

func TestCollectorCountsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewCollector(reg)
	require.NoError(t, err)

	def := defineJob(t, collector)

	require.NoError(t, def.MustNew(nil).Start(context.Background()))
	assert.ErrorIs(t, def.MustNew(pypeline.Values{"fail": true}).Start(context.Background()), errFailed)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.runs.WithLabelValues("Job", "Prepare", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.runs.WithLabelValues("Job", "Run", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.runs.WithLabelValues("Job", "Run", ResultFailure)))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.inFlight.WithLabelValues("Job")))

	families, err := reg.Gather()
	require.NoError(t, err)

	var histogram *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "pypeline_stage_duration_seconds" {
			histogram = mf
		}
	}
	require.NotNil(t, histogram)
	assert.Equal(t, dto.MetricType_HISTOGRAM, histogram.GetType())

	var samples uint64
	for _, m := range histogram.GetMetric() {
		samples += m.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, uint64(4), samples)
}

func TestNewCollectorReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	def := defineJob(t, second)
	require.NoError(t, def.MustNew(nil).Start(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(first.runs.WithLabelValues("Job", "Run", ResultSuccess)))
	assert.Equal(t, 3, testutil.CollectAndCount(first.runs)+testutil.CollectAndCount(first.inFlight))
}
