package sim

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popstat/internal/model"
)

// sourceTree is R(A(A1, A2), B) with ids returned in that order.
func sourceTree(t *testing.T) (*model.Tree, []model.NodeID) {
	t.Helper()
	tree := model.NewTree(10)
	r, err := tree.AddRoot(model.Node{Generation: 0})
	require.NoError(t, err)
	a, err := tree.AddChild(r, model.Node{Generation: 1})
	require.NoError(t, err)
	a1, err := tree.AddChild(a, model.Node{Generation: 2})
	require.NoError(t, err)
	a2, err := tree.AddChild(a, model.Node{Generation: 2, Breakpoints: 1})
	require.NoError(t, err)
	b, err := tree.AddChild(r, model.Node{Generation: 2})
	require.NoError(t, err)
	return tree, []model.NodeID{r, a, a1, a2, b}
}

func TestSubtreeCollapsesToSampleAncestor(t *testing.T) {
	src, ids := sourceTree(t)
	a1, a2, b := ids[2], ids[3], ids[4]

	cherry, err := Subtree(src, []model.NodeID{a1, a2}, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, cherry.Len())
	assert.Len(t, cherry.Tips(), 2)
	root, _ := cherry.Node(cherry.Root())
	assert.Equal(t, 1, root.Generation)
	assert.Equal(t, 1, cherry.Breakpoints())
	assert.Equal(t, 10, cherry.PopulationSize())

	wide, err := Subtree(src, []model.NodeID{a1, b}, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, wide.Len(), "the unary node below the root is kept")
	assert.Equal(t, 2, wide.MaxHeight())

	single, err := Subtree(src, []model.NodeID{a1}, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, single.Len())

	_, err = Subtree(src, []model.NodeID{model.NodeID(99)}, 10)
	assert.Error(t, err)
	_, err = Subtree(src, nil, 10)
	assert.Error(t, err)
}

func TestSubtreeIsIndependentOfSource(t *testing.T) {
	src, ids := sourceTree(t)
	sub, err := Subtree(src, []model.NodeID{ids[2], ids[3], ids[4]}, 10)
	require.NoError(t, err)

	require.NoError(t, src.Detach(ids[4]))
	assert.Equal(t, 5, sub.Len())
	assert.Len(t, sub.Tips(), 3)
}

func TestSamplerDrawsDistinctIndividuals(t *testing.T) {
	e := newTestEngine(t, testParams())
	for i := 0; i < 50; i++ {
		require.NoError(t, e.Step())
	}
	rng := rand.New(rand.NewSource(5))

	nodes := DrawNodes(e, rng, 6)
	seen := make(map[model.NodeID]bool)
	for _, id := range nodes {
		assert.False(t, seen[id])
		seen[id] = true
	}

	tree, err := Sampler{Size: 6}.Sample(e, rng)
	require.NoError(t, err)
	assert.Len(t, tree.Tips(), 6)
	assert.GreaterOrEqual(t, len(tree.Offspring(tree.Root())), 2)
	assert.NotEmpty(t, tree.NodeTimes())
	assert.LessOrEqual(t, len(tree.NodeTimes()), 5)
}

func TestTreeFeedFansOut(t *testing.T) {
	feed := NewTreeFeed(2)
	assert.Equal(t, 2, feed.Epochs())

	first := feed.Subscribe(1, false)
	second := feed.Subscribe(1, false)
	src, _ := sourceTree(t)
	delivered, err := feed.Publish(context.Background(), src, false)
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)

	assert.Equal(t, model.SampledTree(src), <-first)
	assert.Equal(t, model.SampledTree(src), <-second)

	feed.Close()
	feed.Close()
	_, open := <-first
	assert.False(t, open)
	_, err = feed.Publish(context.Background(), src, false)
	assert.ErrorIs(t, err, ErrFeedClosed)

	_, open = <-feed.Subscribe(0, true)
	assert.False(t, open, "late subscribers get a closed channel")
}

func TestTreeFeedPublishHonoursContext(t *testing.T) {
	feed := NewTreeFeed(1)
	_ = feed.Subscribe(0, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src, _ := sourceTree(t)
	_, err := feed.Publish(ctx, src, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTreeFeedDeliversBurninTreesOnlyOnRequest(t *testing.T) {
	feed := NewTreeFeed(1)
	steady := feed.Subscribe(2, false)
	eager := feed.Subscribe(2, true)
	src, _ := sourceTree(t)

	delivered, err := feed.Publish(context.Background(), src, true)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Empty(t, steady)
	assert.Len(t, eager, 1)

	delivered, err = feed.Publish(context.Background(), src, false)
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
	assert.Len(t, steady, 1)
	assert.Len(t, eager, 2)

	feed.Close()
	_, err = feed.Publish(context.Background(), src, true)
	assert.ErrorIs(t, err, ErrFeedClosed)
}
