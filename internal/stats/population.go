package stats

import (
	"math/rand"

	"popstat/internal/config"
	"popstat/internal/model"
)

const (
	TypeMeanFitness         = "stat.mean.fitness"
	TypeFitnessVariance     = "stat.fitness.variance"
	TypeTMRCA               = "stat.tmrca"
	TypePairwiseCoalescence = "stat.pairwise.coalescence"

	KeyPairs = "pairs"

	// DefaultPairCount is the number of random pairs drawn per collection.
	DefaultPairCount = 40
)

// MeanFitness records the mean absolute fitness of each snapshot.
type MeanFitness struct {
	scalar
}

func NewMeanFitness() *MeanFitness {
	return &MeanFitness{scalar: newScalar(TypeMeanFitness, "Mean fitness",
		"Mean absolute fitness of the population",
		Options{Bins: 50, Min: 0, Max: 2})}
}

func (s *MeanFitness) Collect(pop model.Collectible, _ *rand.Rand) {
	if pop == nil || pop.Size() == 0 || !s.begin() {
		return
	}
	s.record(s.opts, Mean(fitnessValues(pop)))
}

// FitnessVariance records the unbiased variance of absolute fitness.
type FitnessVariance struct {
	scalar
}

func NewFitnessVariance() *FitnessVariance {
	return &FitnessVariance{scalar: newScalar(TypeFitnessVariance, "Fitness variance",
		"Sample variance of absolute fitness",
		Options{Bins: 50, Min: 0, Max: 0.5})}
}

func (s *FitnessVariance) Collect(pop model.Collectible, _ *rand.Rand) {
	if pop == nil || pop.Size() < 2 || !s.begin() {
		return
	}
	s.record(s.opts, Variance(fitnessValues(pop)))
}

func fitnessValues(pop model.Collectible) []float64 {
	values := make([]float64, pop.Size())
	for i := range values {
		values[i] = pop.At(i).Fitness
	}
	return values
}

// TMRCA records the distance in generations from a representative
// individual to the root of the population genealogy.
type TMRCA struct {
	scalar
}

func NewTMRCA() *TMRCA {
	return &TMRCA{scalar: newScalar(TypeTMRCA, "TMRCA",
		"Generations to the most recent common ancestor of the population",
		Options{Bins: 100, Min: 0, Max: 10000})}
}

func (s *TMRCA) Collect(pop model.Collectible, _ *rand.Rand) {
	if pop == nil || pop.Size() == 0 {
		return
	}
	g := pop.Ancestry()
	if g == nil || g.Len() == 0 {
		return
	}
	node := pop.At(0).Node
	if node == model.NoNode || !s.begin() {
		return
	}
	s.record(s.opts, float64(g.DistanceToRoot(node)))
}

// PairwiseCoalescence samples random pairs of individuals and records how
// many generations back their lineages merge, scaled by population size.
type PairwiseCoalescence struct {
	scalar
	pairs int
}

func NewPairwiseCoalescence() *PairwiseCoalescence {
	return &PairwiseCoalescence{
		scalar: newScalar(TypePairwiseCoalescence, "Pairwise coalescence time",
			"Coalescence time of random pairs, in units of N generations",
			Options{Bins: 50, Min: 0, Max: 5}),
		pairs: DefaultPairCount,
	}
}

func (s *PairwiseCoalescence) ApplyConfig(b *config.Block) error {
	if err := s.scalar.ApplyConfig(b); err != nil {
		return err
	}
	if pairs := b.Int(KeyPairs, s.pairs); pairs > 0 {
		s.pairs = pairs
	}
	return nil
}

func (s *PairwiseCoalescence) ConfigBlock() *config.Block {
	return s.scalar.ConfigBlock().SetInt(KeyPairs, s.pairs)
}

// Collect is a no-op for populations smaller than two, where no distinct
// pair exists.
func (s *PairwiseCoalescence) Collect(pop model.Collectible, rng *rand.Rand) {
	if pop == nil || rng == nil {
		return
	}
	n := pop.Size()
	if n < 2 {
		return
	}
	g := pop.Ancestry()
	if g == nil || g.Len() == 0 || !s.begin() {
		return
	}

	scale := float64(n)
	var sum float64
	var count int
	for k := 0; k < s.pairs; k++ {
		i := rng.Intn(n)
		j := rng.Intn(n)
		for j == i {
			j = rng.Intn(n)
		}
		steps, ok := lockstep(g, pop.At(i).Node, pop.At(j).Node)
		if !ok {
			continue
		}
		scaled := float64(steps) / scale
		s.observe(s.opts, scaled)
		sum += scaled
		count++
	}
	if count > 0 {
		s.values = append(s.values, sum/float64(count))
	}
}

// RunningMean is the mean of every scaled pair observed so far.
func (s *PairwiseCoalescence) RunningMean() float64 {
	if s.hist == nil {
		return 0
	}
	return s.hist.Mean()
}

// lockstep walks two lineages one generation at a time until they meet. It
// reports false when either lineage runs off the root first.
func lockstep(g model.Genealogy, a, b model.NodeID) (int, bool) {
	if a == model.NoNode || b == model.NoNode {
		return 0, false
	}
	steps := 0
	for a != b {
		a = g.Parent(a)
		b = g.Parent(b)
		if a == model.NoNode || b == model.NoNode {
			return steps, false
		}
		steps++
	}
	return steps, true
}

// CoalescenceTime aligns a and b to the same distance from the root by
// walking the deeper lineage up, then counts the lockstep generations until
// they meet. The count is symmetric in a and b.
func CoalescenceTime(g model.Genealogy, a, b model.NodeID) (int, bool) {
	if g == nil || a == model.NoNode || b == model.NoNode {
		return 0, false
	}
	return alignedCoalescence(g, a, g.DistanceToRoot(a), b, g.DistanceToRoot(b))
}

func alignedCoalescence(g model.Genealogy, a model.NodeID, da int, b model.NodeID, db int) (int, bool) {
	for da > db {
		a = g.Parent(a)
		da--
	}
	for db > da {
		b = g.Parent(b)
		db--
	}
	return lockstep(g, a, b)
}
