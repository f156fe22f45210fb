package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"popstat/internal/model"
)

// Subtree copies the ancestry of tips out of src into a new tree. The copy
// keeps single-offspring nodes below the sample's most recent common
// ancestor so hop counts still equal generations, but the unary chain above
// it is dropped.
func Subtree(src model.Genealogy, tips []model.NodeID, populationSize int) (*model.Tree, error) {
	if src == nil || src.Root() == model.NoNode {
		return nil, fmt.Errorf("source genealogy is empty")
	}
	if len(tips) == 0 {
		return nil, fmt.Errorf("at least one tip is required")
	}

	marked := make(map[model.NodeID]bool, len(tips)*4)
	requested := make(map[model.NodeID]bool, len(tips))
	for _, tip := range tips {
		if _, ok := src.Node(tip); !ok {
			return nil, fmt.Errorf("tip %d is not in the genealogy", tip)
		}
		requested[tip] = true
		for id := tip; id != model.NoNode && !marked[id]; id = src.Parent(id) {
			marked[id] = true
		}
	}
	if !marked[src.Root()] {
		return nil, fmt.Errorf("tips do not share the genealogy root")
	}

	out := model.NewTree(populationSize)
	origin := make(map[model.NodeID]model.NodeID, len(marked))
	rootNode, _ := src.Node(src.Root())
	root, err := out.AddRoot(rootNode)
	if err != nil {
		return nil, err
	}
	origin[root] = src.Root()

	type frame struct{ from, to model.NodeID }
	stack := []frame{{from: src.Root(), to: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range src.Offspring(f.from) {
			if !marked[child] {
				continue
			}
			node, _ := src.Node(child)
			id, err := out.AddChild(f.to, node)
			if err != nil {
				return nil, err
			}
			origin[id] = child
			stack = append(stack, frame{from: child, to: id})
		}
	}

	for !requested[origin[out.Root()]] && out.PromoteOnlyChild() {
	}
	return out, nil
}

// Sampler draws a fixed number of distinct individuals from an engine.
type Sampler struct {
	Size int
}

// DrawNodes returns the ancestry nodes of size distinct random individuals.
func DrawNodes(e *Engine, rng *rand.Rand, size int) []model.NodeID {
	if size > e.Size() {
		size = e.Size()
	}
	nodes := make([]model.NodeID, 0, size)
	for _, i := range rng.Perm(e.Size())[:size] {
		nodes = append(nodes, e.At(i).Node)
	}
	return nodes
}

// Sample builds the genealogy of a fresh random sample.
func (s Sampler) Sample(e *Engine, rng *rand.Rand) (*model.Tree, error) {
	return Subtree(e.Tree(), DrawNodes(e, rng, s.Size), e.params.Size)
}

var ErrFeedClosed = errors.New("tree feed closed")

// TreeFeed fans sampled trees out to subscribed listeners. Publish and Close
// are called from the driving goroutine only.
type TreeFeed struct {
	mu     sync.Mutex
	epochs int
	subs   []subscription
	closed bool
}

type subscription struct {
	ch     chan model.SampledTree
	burnin bool
}

func NewTreeFeed(epochs int) *TreeFeed {
	if epochs <= 0 {
		epochs = 1
	}
	return &TreeFeed{epochs: epochs}
}

// Epochs is the number of sampling epochs mixed into each published tree.
func (f *TreeFeed) Epochs() int { return f.epochs }

// Subscribe registers a listener channel with the given buffer. Trees
// published during burn-in reach it only when includeBurnin is set.
func (f *TreeFeed) Subscribe(buffer int, includeBurnin bool) <-chan model.SampledTree {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan model.SampledTree, buffer)
	if f.closed {
		close(ch)
		return ch
	}
	f.subs = append(f.subs, subscription{ch: ch, burnin: includeBurnin})
	return ch
}

// Publish hands tree to every subscriber that accepts trees of this phase,
// blocking until each takes it or ctx is done. It reports how many
// subscribers received the tree. The tree must not be modified afterwards.
func (f *TreeFeed) Publish(ctx context.Context, tree model.SampledTree, burnin bool) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, ErrFeedClosed
	}
	subs := append([]subscription(nil), f.subs...)
	f.mu.Unlock()

	delivered := 0
	for _, sub := range subs {
		if burnin && !sub.burnin {
			continue
		}
		select {
		case sub.ch <- tree:
			delivered++
		case <-ctx.Done():
			return delivered, ctx.Err()
		}
	}
	return delivered, nil
}

// Close ends every subscription. It is safe to call more than once.
func (f *TreeFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for _, sub := range f.subs {
		close(sub.ch)
	}
	f.subs = nil
}
