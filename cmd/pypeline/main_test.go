package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julienvaslet/pypeline"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	t.Setenv("PYPELINE_DEBUG", "")
	var buf bytes.Buffer
	previous := out
	out = &buf
	t.Cleanup(func() { out = previous })
	return &buf
}

func TestRunReleasePipeline(t *testing.T) {
	buf := captureOutput(t)

	require.NoError(t, run(context.Background(), nil))

	assert.Equal(t, "[Sync] Running...\n"+
		"Sync version 50\n"+
		"[Sync] Executed.\n"+
		"[Build] Running...\n"+
		"Build Hello.txt\n"+
		"[Build] Executed.\n"+
		"[Submit] Running...\n"+
		"Submit!\n"+
		"[Submit] Executed.\n", buf.String())
}

func TestRunWithValuesFile(t *testing.T) {
	buf := captureOutput(t)

	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte("changelist: 51\nvalue: Other.txt\n"), 0o644))

	require.NoError(t, run(context.Background(), []string{path}))
	assert.Contains(t, buf.String(), "Sync version 51\n")
	assert.Contains(t, buf.String(), "Build Other.txt\n")
}

func TestRunRejectsUnknownValues(t *testing.T) {
	captureOutput(t)

	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte("branch: main\n"), 0o644))

	err := run(context.Background(), []string{path})
	assert.ErrorIs(t, err, pypeline.ErrUnknownAttribute)
}

func TestRunMissingFile(t *testing.T) {
	captureOutput(t)
	assert.Error(t, run(context.Background(), []string{filepath.Join(t.TempDir(), "missing.yaml")}))
}

func TestReleaseSignature(t *testing.T) {
	def, err := define(pypeline.NewRegistry(), pypeline.NewDefaultLogger())
	require.NoError(t, err)
	assert.Equal(t, `Release(changelist int, value string = "Default.txt")`, def.Schema().Signature())
}

func TestRunRecordsMetrics(t *testing.T) {
	captureOutput(t)
	require.NoError(t, run(context.Background(), nil))

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var runs float64
	for _, mf := range families {
		if mf.GetName() != "pypeline_stage_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			runs += m.GetCounter().GetValue()
		}
	}
	assert.GreaterOrEqual(t, runs, 3.0)
}
