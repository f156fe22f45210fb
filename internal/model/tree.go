package model

import "fmt"

// NodeID addresses a node inside one Tree's arena.
type NodeID int

// NoNode marks an absent parent or a freed slot.
const NoNode NodeID = -1

// Node is one locus in a genealogy. Parent and offspring are index relations
// into the owning Tree, so a node never owns its parent.
type Node struct {
	Fitness         float64
	RelativeFitness float64
	Generation      int
	Breakpoints     int

	parent    NodeID
	offspring []NodeID
	live      bool
}

// Parent returns the index of the node's parent or NoNode for the root.
func (n Node) Parent() NodeID { return n.parent }

// Offspring returns the node's children in insertion order. The slice is
// shared with the arena and must not be modified.
func (n Node) Offspring() []NodeID { return n.offspring }

// Tree is an arena of genealogy nodes with a single root. The engine mutates
// it while simulating; statistics only read it through SampledTree.
type Tree struct {
	nodes []Node
	free  []NodeID
	root  NodeID
	live  int

	populationSize int
}

// NewTree returns an empty tree. populationSize is the census size the tree
// was drawn from and is used by statistics that rescale times.
func NewTree(populationSize int) *Tree {
	return &Tree{root: NoNode, populationSize: populationSize}
}

// AddRoot installs the root node. It fails if a root already exists.
func (t *Tree) AddRoot(n Node) (NodeID, error) {
	if t.root != NoNode {
		return NoNode, fmt.Errorf("tree already has root %d", t.root)
	}
	id := t.alloc(n, NoNode)
	t.root = id
	return id, nil
}

// AddChild appends a new node under parent.
func (t *Tree) AddChild(parent NodeID, n Node) (NodeID, error) {
	if !t.valid(parent) {
		return NoNode, fmt.Errorf("parent node %d does not exist", parent)
	}
	id := t.alloc(n, parent)
	t.nodes[parent].offspring = append(t.nodes[parent].offspring, id)
	return id, nil
}

// Detach removes a node without offspring and releases its slot.
func (t *Tree) Detach(id NodeID) error {
	if !t.valid(id) {
		return fmt.Errorf("node %d does not exist", id)
	}
	if len(t.nodes[id].offspring) > 0 {
		return fmt.Errorf("node %d still has %d offspring", id, len(t.nodes[id].offspring))
	}
	if parent := t.nodes[id].parent; parent != NoNode {
		kids := t.nodes[parent].offspring
		for i, child := range kids {
			if child == id {
				t.nodes[parent].offspring = append(kids[:i], kids[i+1:]...)
				break
			}
		}
	}
	if t.root == id {
		t.root = NoNode
	}
	t.nodes[id] = Node{parent: NoNode}
	t.free = append(t.free, id)
	t.live--
	return nil
}

// PromoteOnlyChild replaces a root that has exactly one child with that child.
// It reports whether the root changed.
func (t *Tree) PromoteOnlyChild() bool {
	if t.root == NoNode || len(t.nodes[t.root].offspring) != 1 {
		return false
	}
	old := t.root
	child := t.nodes[old].offspring[0]
	t.nodes[child].parent = NoNode
	t.nodes[old].offspring = nil
	t.root = child
	t.nodes[old] = Node{parent: NoNode}
	t.free = append(t.free, old)
	t.live--
	return true
}

func (t *Tree) alloc(n Node, parent NodeID) NodeID {
	n.parent = parent
	n.offspring = nil
	n.live = true
	t.live++
	if k := len(t.free); k > 0 {
		id := t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[id] = n
		return id
	}
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

func (t *Tree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes) && t.nodes[id].live
}

// Len is the number of live nodes. A nil tree is empty.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return t.live
}

func (t *Tree) Root() NodeID {
	if t == nil {
		return NoNode
	}
	return t.root
}

func (t *Tree) PopulationSize() int {
	if t == nil {
		return 0
	}
	return t.populationSize
}

// Node returns a copy of the node stored at id.
func (t *Tree) Node(id NodeID) (Node, bool) {
	if t == nil || !t.valid(id) {
		return Node{}, false
	}
	return t.nodes[id], true
}

// Parent returns NoNode for the root or an unknown id.
func (t *Tree) Parent(id NodeID) NodeID {
	if t == nil || !t.valid(id) {
		return NoNode
	}
	return t.nodes[id].parent
}

func (t *Tree) Offspring(id NodeID) []NodeID {
	if t == nil || !t.valid(id) {
		return nil
	}
	return t.nodes[id].offspring
}

// Tips lists the reachable nodes without offspring in depth-first order.
func (t *Tree) Tips() []NodeID {
	if t.Len() == 0 || t.root == NoNode {
		return nil
	}
	var tips []NodeID
	stack := []NodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		kids := t.nodes[id].offspring
		if len(kids) == 0 {
			tips = append(tips, id)
			continue
		}
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return tips
}

// DistanceToRoot counts parent hops from id to the root.
func (t *Tree) DistanceToRoot(id NodeID) int {
	if t == nil || !t.valid(id) {
		return 0
	}
	hops := 0
	for p := t.nodes[id].parent; p != NoNode; p = t.nodes[p].parent {
		hops++
	}
	return hops
}

// NodeTimes returns, for every reachable node with two or more offspring, its
// age in generations before the youngest tip.
func (t *Tree) NodeTimes() []float64 {
	if t.Len() == 0 || t.root == NoNode {
		return nil
	}
	youngest := 0
	first := true
	var internal []NodeID
	stack := []NodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.nodes[id]
		switch {
		case len(n.offspring) == 0:
			if first || n.Generation > youngest {
				youngest = n.Generation
				first = false
			}
		case len(n.offspring) >= 2:
			internal = append(internal, id)
		}
		stack = append(stack, n.offspring...)
	}
	times := make([]float64, 0, len(internal))
	for _, id := range internal {
		times = append(times, float64(youngest-t.nodes[id].Generation))
	}
	return times
}

// MaxHeight is the largest tip-to-root distance.
func (t *Tree) MaxHeight() int {
	if t.Len() == 0 || t.root == NoNode {
		return 0
	}
	best := 0
	type frame struct {
		id    NodeID
		depth int
	}
	stack := []frame{{id: t.root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		kids := t.nodes[f.id].offspring
		if len(kids) == 0 && f.depth > best {
			best = f.depth
		}
		for _, child := range kids {
			stack = append(stack, frame{id: child, depth: f.depth + 1})
		}
	}
	return best
}

// Breakpoints sums the recombination breakpoints recorded on reachable
// nodes.
func (t *Tree) Breakpoints() int {
	if t.Len() == 0 || t.root == NoNode {
		return 0
	}
	total := 0
	stack := []NodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total += t.nodes[id].Breakpoints
		stack = append(stack, t.nodes[id].offspring...)
	}
	return total
}
