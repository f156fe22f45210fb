package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popstat/internal/config"
	"popstat/internal/sim"
	"popstat/internal/stats"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = orig })
	return &buf
}

func writeSmallConfig(t *testing.T, dir string) string {
	t.Helper()
	doc, err := sim.DefaultDocument()
	require.NoError(t, err)
	doc.Params.Size = 16
	doc.Params.Generations = 40
	doc.Params.Burnin = 10
	doc.Params.SampleFrequency = 10
	doc.Params.SampleSize = 5
	doc.Mutation.Length = 10

	path := filepath.Join(dir, "config.xml")
	require.NoError(t, config.WriteFile(path, doc.Block()))
	return path
}

func TestRunCommandWritesArtifacts(t *testing.T) {
	out := captureStdout(t)
	dir := t.TempDir()
	cfg := writeSmallConfig(t, dir)
	runsOut := filepath.Join(dir, "runs")

	err := run(context.Background(), []string{
		"run", "--config", cfg, "--out", runsOut, "--store", "memory",
		"--run-id", "small", "--seed", "9", "--log-level", "warn",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "run_id=small generations=40 trees=3")

	for _, file := range []string{"config.xml", "summary.txt", "series.json"} {
		_, err := os.Stat(filepath.Join(runsOut, "small", file))
		require.NoError(t, err, file)
	}
	saved, err := config.ReadFile(filepath.Join(runsOut, "small", "config.xml"))
	require.NoError(t, err)
	doc, err := sim.ParseDocument(saved)
	require.NoError(t, err)
	assert.Equal(t, int64(9), doc.Params.Seed)

	entries, err := stats.ListRunIndex(runsOut)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, len(sim.DefaultStatistics), len(entries[0].Statistics))

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"runs", "--out", runsOut}))
	assert.Contains(t, out.String(), "run_id=small")

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"report", "--store", "memory", "--out", runsOut, "--run-id", "small"}))
	assert.Contains(t, out.String(), "== Colless' index (stat.colless) ==")

	exportDir := filepath.Join(dir, "exports")
	out.Reset()
	require.NoError(t, run(context.Background(), []string{"export", "--latest", "--out", runsOut, "--to", exportDir}))
	_, err = os.Stat(filepath.Join(exportDir, "small", "summary.txt"))
	require.NoError(t, err)
}

func TestRunCommandReplicates(t *testing.T) {
	out := captureStdout(t)
	dir := t.TempDir()
	cfg := writeSmallConfig(t, dir)
	runsOut := filepath.Join(dir, "runs")

	require.NoError(t, run(context.Background(), []string{
		"run", "--config", cfg, "--out", runsOut, "--store", "memory",
		"--run-id", "batch", "--replicates", "2", "--log-level", "error",
	}))
	assert.Contains(t, out.String(), "experiment_id=batch replicates=2")

	exp, ok, err := stats.ReadExperiment(runsOut, "batch")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"batch-rep1", "batch-rep2"}, exp.RunIDs)
	assert.NotEmpty(t, exp.Replicated)

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"experiments", "--out", runsOut}))
	assert.Contains(t, out.String(), "experiment_id=batch")
}

func TestConfigCommandPrintsParsableDocument(t *testing.T) {
	out := captureStdout(t)
	require.NoError(t, run(context.Background(), []string{"config"}))

	root, err := config.Decode(strings.NewReader(out.String()))
	require.NoError(t, err)
	doc, err := sim.ParseDocument(root)
	require.NoError(t, err)
	assert.Equal(t, sim.DefaultParams(), doc.Params)
}

func TestStatisticsCommandListsTypes(t *testing.T) {
	out := captureStdout(t)
	require.NoError(t, run(context.Background(), []string{"statistics"}))
	for _, tag := range stats.ListTypes() {
		assert.Contains(t, out.String(), tag)
	}
}

func TestCommandErrors(t *testing.T) {
	captureStdout(t)
	ctx := context.Background()

	assert.Error(t, run(ctx, nil))
	assert.Error(t, run(ctx, []string{"bogus"}))
	assert.Error(t, run(ctx, []string{"run", "--replicates", "0"}))
	assert.Error(t, run(ctx, []string{"run", "--log-level", "loud"}))
	assert.Error(t, run(ctx, []string{"report", "--store", "memory"}))
	assert.Error(t, run(ctx, []string{"export", "--run-id", "a", "--latest"}))

	missing := filepath.Join(t.TempDir(), "missing.xml")
	assert.Error(t, run(ctx, []string{"run", "--config", missing}))
}
