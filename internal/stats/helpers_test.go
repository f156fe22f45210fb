package stats

import (
	"testing"

	"github.com/stretchr/testify/require"

	"popstat/internal/model"
)

// scenarioTree is R(A(A1, A2), B).
func scenarioTree(t *testing.T) *model.Tree {
	t.Helper()
	tree := model.NewTree(10)
	r, err := tree.AddRoot(model.Node{Generation: 0})
	require.NoError(t, err)
	a, err := tree.AddChild(r, model.Node{Generation: 1})
	require.NoError(t, err)
	_, err = tree.AddChild(r, model.Node{Generation: 2, Breakpoints: 1})
	require.NoError(t, err)
	_, err = tree.AddChild(a, model.Node{Generation: 2})
	require.NoError(t, err)
	_, err = tree.AddChild(a, model.Node{Generation: 2})
	require.NoError(t, err)
	return tree
}

// balancedTree is a perfect binary tree with 2^levels tips.
func balancedTree(t *testing.T, levels int) *model.Tree {
	t.Helper()
	tree := model.NewTree(100)
	root, err := tree.AddRoot(model.Node{Generation: 0})
	require.NoError(t, err)
	frontier := []model.NodeID{root}
	for level := 1; level <= levels; level++ {
		var next []model.NodeID
		for _, parent := range frontier {
			for k := 0; k < 2; k++ {
				id, err := tree.AddChild(parent, model.Node{Generation: level})
				require.NoError(t, err)
				next = append(next, id)
			}
		}
		frontier = next
	}
	return tree
}

// caterpillar is a fully unbalanced tree with n tips.
func caterpillar(t *testing.T, n int) *model.Tree {
	t.Helper()
	tree := model.NewTree(100)
	spine, err := tree.AddRoot(model.Node{Generation: 0})
	require.NoError(t, err)
	for depth := 1; depth < n; depth++ {
		_, err := tree.AddChild(spine, model.Node{Generation: depth})
		require.NoError(t, err)
		next, err := tree.AddChild(spine, model.Node{Generation: depth})
		require.NoError(t, err)
		spine = next
	}
	return tree
}

// chainedTree inserts a single-offspring node between the root and each
// child of the scenario tree.
func chainedTree(t *testing.T) *model.Tree {
	t.Helper()
	tree := model.NewTree(10)
	r, err := tree.AddRoot(model.Node{Generation: 0})
	require.NoError(t, err)
	ua, err := tree.AddChild(r, model.Node{Generation: 1})
	require.NoError(t, err)
	a, err := tree.AddChild(ua, model.Node{Generation: 2})
	require.NoError(t, err)
	ub, err := tree.AddChild(r, model.Node{Generation: 1})
	require.NoError(t, err)
	_, err = tree.AddChild(ub, model.Node{Generation: 3})
	require.NoError(t, err)
	_, err = tree.AddChild(a, model.Node{Generation: 3})
	require.NoError(t, err)
	_, err = tree.AddChild(a, model.Node{Generation: 3})
	require.NoError(t, err)
	return tree
}

type fixedEpochs int

func (f fixedEpochs) Epochs() int { return int(f) }
