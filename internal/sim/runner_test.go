package sim

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popstat/internal/config"
	"popstat/internal/stats"
)

func testDocument(tags ...string) Document {
	p := testParams()
	p.Size = 20
	p.Generations = 60
	p.Burnin = 10
	statistics := config.NewBlock(stats.StatisticsBlock, "")
	for _, tag := range tags {
		statistics.AddChild(config.NewBlock(stats.BlockName, tag))
	}
	return Document{
		Params:     p,
		Fitness:    AdditiveFitness{Selection: 0.01},
		Mutation:   BiallelicMutation{Length: 20, Rate: 0.01, Forward: 1, Back: 1},
		Statistics: statistics,
	}
}

func TestRunnerCollectsOnSchedule(t *testing.T) {
	metrics := NewMetrics()
	require.NoError(t, metrics.Register(prometheus.NewRegistry()))

	runner, err := NewRunner(testDocument(stats.TypeMeanFitness, stats.TypeColless), metrics)
	require.NoError(t, err)
	result, err := runner.Run(context.Background(), "")
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 60, result.Generations)
	// ticks at 10, 20, 30, 40 and 50; generation 0 is burn-in
	assert.Equal(t, 5, result.TreesSampled)
	assert.Equal(t, 0, result.Published)
	require.Len(t, result.Summaries, 2)
	assert.Len(t, result.Summaries[0].Samples, 5)
	assert.Len(t, result.Summaries[1].Samples, 5)

	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.collections.WithLabelValues(stats.TypeColless)))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.collections.WithLabelValues(stats.TypeMeanFitness)))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.treesSampled))
	assert.Equal(t, 60.0, testutil.ToFloat64(metrics.generations))
}

func TestRunnerIsReproducible(t *testing.T) {
	doc := testDocument(stats.TypePairwiseCoalescence, stats.TypeSackinMean, stats.TypeCoalescentIntervals)

	first, err := NewRunner(doc, nil)
	require.NoError(t, err)
	a, err := first.Run(context.Background(), "run-a")
	require.NoError(t, err)

	second, err := NewRunner(doc, nil)
	require.NoError(t, err)
	b, err := second.Run(context.Background(), "run-b")
	require.NoError(t, err)

	require.Len(t, b.Summaries, len(a.Summaries))
	for i := range a.Summaries {
		assert.Equal(t, a.Summaries[i].Report, b.Summaries[i].Report)
		assert.Equal(t, a.Summaries[i].Samples, b.Summaries[i].Samples)
	}
}

func TestRunnerFeedsSerialTrees(t *testing.T) {
	doc := testDocument(stats.TypeColless, stats.TypeSerialPairwiseCoalescence)
	doc.Params.SerialGap = 3

	metrics := NewMetrics()
	runner, err := NewRunner(doc, metrics)
	require.NoError(t, err)
	result, err := runner.Run(context.Background(), "serial")
	require.NoError(t, err)

	// the first serial tick at 10 has no earlier half because 7 is burn-in
	assert.Equal(t, 4, result.Published)
	assert.Equal(t, 9, result.TreesSampled)
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.published))

	require.Len(t, result.Summaries, 2)
	report := result.Summaries[1].Report
	assert.True(t, strings.HasPrefix(report, "== Serial pairwise coalescence time"))
	assert.NotContains(t, report, "same epoch: pairs 0 ")
}

func TestRunnerFeedsBurninTreesToOptedInListeners(t *testing.T) {
	doc := testDocument(stats.TypeColless, stats.TypeSerialPairwiseCoalescence)
	result, err := mustRunner(t, doc).Run(context.Background(), "steady")
	require.NoError(t, err)
	// ticks at 10 through 50, six tips give 15 pairs per tree
	assert.Equal(t, 5, result.Published)
	assert.Contains(t, result.Summaries[1].Report, "same epoch: pairs 75 ")

	doc = testDocument(stats.TypeColless, stats.TypeSerialPairwiseCoalescence)
	doc.Statistics.Children[1].SetBool(stats.KeyIncludeBurnin, true)
	result, err = mustRunner(t, doc).Run(context.Background(), "eager")
	require.NoError(t, err)
	// the burn-in tick at generation 0 now reaches the serial statistic
	assert.Equal(t, 6, result.Published)
	assert.Equal(t, 11, result.TreesSampled)
	assert.True(t, result.Statistics[1].Capabilities().CollectDuringBurnin)
	assert.Contains(t, result.Summaries[1].Report, "same epoch: pairs 90 ")
}

func mustRunner(t *testing.T, doc Document) *Runner {
	t.Helper()
	runner, err := NewRunner(doc, nil)
	require.NoError(t, err)
	return runner
}

func TestRunnerSkipsBrokenStatistics(t *testing.T) {
	doc := testDocument(stats.TypeColless, "stat.unknown")
	runner, err := NewRunner(doc, nil)
	require.NoError(t, err)
	result, err := runner.Run(context.Background(), "partial")
	require.NoError(t, err)
	require.Len(t, result.Statistics, 1)

	empty := testDocument("stat.unknown")
	runner, err = NewRunner(empty, nil)
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), "empty")
	assert.Error(t, err)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	runner, err := NewRunner(testDocument(stats.TypeColless), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runner.Run(ctx, "cancelled")
	assert.ErrorIs(t, err, context.Canceled)
}
