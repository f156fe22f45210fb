package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"popstat/internal/model"
)

type individual struct {
	genotype Genotype
	fitness  float64
	relative float64
	node     model.NodeID
}

// Engine advances a Wright-Fisher population with non-overlapping
// generations and fitness-proportional reproduction. Every individual's
// ancestry is recorded in an arena tree; lineages without descendants are
// pruned each generation and the root follows the most recent common
// ancestor of everything still alive or pinned.
type Engine struct {
	params   Params
	fitness  AdditiveFitness
	mutation BiallelicMutation
	rng      *rand.Rand

	tree       *model.Tree
	current    []individual
	generation int
	pinned     map[model.NodeID]int
}

// NewEngine seeds a founder population of identical ancestral genotypes
// under a synthetic root at generation -1.
func NewEngine(params Params, fitness AdditiveFitness, mutation BiallelicMutation, rng *rand.Rand) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if mutation.Length <= 0 {
		return nil, fmt.Errorf("genotype length must be > 0")
	}

	e := &Engine{
		params:   params,
		fitness:  fitness,
		mutation: mutation,
		rng:      rng,
		tree:     model.NewTree(params.Size),
		pinned:   make(map[model.NodeID]int),
	}
	root, err := e.tree.AddRoot(model.Node{Generation: -1})
	if err != nil {
		return nil, err
	}

	founders := make([]individual, params.Size)
	parents := make([]model.NodeID, params.Size)
	for i := range founders {
		g := make(Genotype, mutation.Length)
		founders[i] = individual{genotype: g, fitness: fitness.Score(g, rng)}
		parents[i] = root
	}
	if err := e.record(founders, parents, nil, 0); err != nil {
		return nil, err
	}
	e.current = founders
	return e, nil
}

// record assigns relative fitness and appends one arena node per individual.
func (e *Engine) record(next []individual, parents []model.NodeID, breakpoints []int, generation int) error {
	var total float64
	for _, ind := range next {
		total += ind.fitness
	}
	mean := total / float64(len(next))
	for i := range next {
		next[i].relative = next[i].fitness / mean
		node := model.Node{
			Fitness:         next[i].fitness,
			RelativeFitness: next[i].relative,
			Generation:      generation,
		}
		if breakpoints != nil {
			node.Breakpoints = breakpoints[i]
		}
		id, err := e.tree.AddChild(parents[i], node)
		if err != nil {
			return fmt.Errorf("record individual %d of generation %d: %w", i, generation, err)
		}
		next[i].node = id
	}
	return nil
}

// Step produces the next generation.
func (e *Engine) Step() error {
	n := len(e.current)
	cumulative := make([]float64, n)
	var total float64
	for i, ind := range e.current {
		total += ind.fitness
		cumulative[i] = total
	}

	next := make([]individual, n)
	parents := make([]model.NodeID, n)
	breakpoints := make([]int, n)
	for i := range next {
		p := e.pick(cumulative, total)
		g := e.current[p].genotype.Clone()
		if e.params.RecombinationRate > 0 && len(g) > 1 && e.rng.Float64() < e.params.RecombinationRate {
			q := e.pick(cumulative, total)
			g = Recombine(g, e.current[q].genotype, 1+e.rng.Intn(len(g)-1))
			breakpoints[i] = 1
		}
		e.mutation.Mutate(g, e.rng)
		next[i] = individual{genotype: g, fitness: e.fitness.Score(g, e.rng)}
		parents[i] = e.current[p].node
	}

	generation := e.generation + 1
	if err := e.record(next, parents, breakpoints, generation); err != nil {
		return err
	}
	previous := e.current
	e.current = next
	e.generation = generation

	for _, ind := range previous {
		if err := e.prune(ind.node); err != nil {
			return err
		}
	}
	e.collapseRoot()
	return nil
}

func (e *Engine) pick(cumulative []float64, total float64) int {
	i := sort.SearchFloat64s(cumulative, e.rng.Float64()*total)
	if i >= len(cumulative) {
		i = len(cumulative) - 1
	}
	return i
}

// prune detaches id and then each ancestor left without offspring. Pinned
// nodes, the root and members of the current generation stop the walk.
func (e *Engine) prune(id model.NodeID) error {
	for id != model.NoNode && id != e.tree.Root() {
		if len(e.tree.Offspring(id)) > 0 || e.pinned[id] > 0 {
			return nil
		}
		node, ok := e.tree.Node(id)
		if !ok || node.Generation >= e.generation {
			return nil
		}
		parent := e.tree.Parent(id)
		if err := e.tree.Detach(id); err != nil {
			return fmt.Errorf("prune node %d: %w", id, err)
		}
		id = parent
	}
	return nil
}

func (e *Engine) collapseRoot() {
	for e.pinned[e.tree.Root()] == 0 && e.tree.PromoteOnlyChild() {
	}
}

// Pin keeps ids in the ancestry until they are unpinned, so serial samples
// drawn in an earlier generation stay addressable.
func (e *Engine) Pin(ids ...model.NodeID) {
	for _, id := range ids {
		e.pinned[id]++
	}
}

// Unpin releases ids and prunes any that no longer lead to the living
// population.
func (e *Engine) Unpin(ids ...model.NodeID) error {
	for _, id := range ids {
		switch e.pinned[id] {
		case 0:
			continue
		case 1:
			delete(e.pinned, id)
		default:
			e.pinned[id]--
			continue
		}
		if err := e.prune(id); err != nil {
			return err
		}
	}
	e.collapseRoot()
	return nil
}

func (e *Engine) Generation() int { return e.generation }

// Tree exposes the live ancestry arena. It changes on every Step.
func (e *Engine) Tree() *model.Tree { return e.tree }

func (e *Engine) Size() int { return len(e.current) }

func (e *Engine) At(i int) model.Individual {
	ind := e.current[i]
	return model.Individual{Fitness: ind.fitness, RelativeFitness: ind.relative, Node: ind.node}
}

func (e *Engine) Ancestry() model.Genealogy { return e.tree }

// Genotype returns a copy of individual i's genotype.
func (e *Engine) Genotype(i int) Genotype { return e.current[i].genotype.Clone() }

var _ model.Collectible = (*Engine)(nil)
