package stats

import (
	"popstat/internal/model"
)

const (
	TypeCladeSizes     = "stat.clade.sizes"
	TypeColless        = "stat.colless"
	TypeSackinMean     = "stat.sackin.mean"
	TypeSackinVariance = "stat.sackin.variance"
)

// preorder lists the nodes reachable from the root, parents before children.
func preorder(tree model.Genealogy) []model.NodeID {
	root := tree.Root()
	if root == model.NoNode {
		return nil
	}
	order := make([]model.NodeID, 0, tree.Len())
	stack := []model.NodeID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, id)
		kids := tree.Offspring(id)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return order
}

// tipCounts maps every reachable node to the number of tips below it. The
// map is scratch space owned by the calling statistic.
func tipCounts(tree model.Genealogy, order []model.NodeID) map[model.NodeID]int {
	counts := make(map[model.NodeID]int, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		kids := tree.Offspring(id)
		if len(kids) == 0 {
			counts[id] = 1
			continue
		}
		total := 0
		for _, child := range kids {
			total += counts[child]
		}
		counts[id] = total
	}
	return counts
}

// CladeSizes returns the tip count of every node with two or more offspring.
// Single-offspring nodes are passed through.
func CladeSizes(tree model.Genealogy) []int {
	if tree == nil || tree.Len() == 0 {
		return nil
	}
	order := preorder(tree)
	counts := tipCounts(tree, order)
	var sizes []int
	for _, id := range order {
		if len(tree.Offspring(id)) >= 2 {
			sizes = append(sizes, counts[id])
		}
	}
	return sizes
}

// CollessIndex sums |tips(left) - tips(right)| over every node with exactly
// two offspring.
func CollessIndex(tree model.Genealogy) int {
	if tree == nil || tree.Len() == 0 {
		return 0
	}
	order := preorder(tree)
	counts := tipCounts(tree, order)
	total := 0
	for _, id := range order {
		kids := tree.Offspring(id)
		if len(kids) != 2 {
			continue
		}
		diff := counts[kids[0]] - counts[kids[1]]
		if diff < 0 {
			diff = -diff
		}
		total += diff
	}
	return total
}

// SackinDistances returns, per tip, the number of parent hops to the root.
func SackinDistances(tree model.SampledTree) []float64 {
	if tree == nil || tree.Len() == 0 {
		return nil
	}
	tips := tree.Tips()
	out := make([]float64, len(tips))
	for i, tip := range tips {
		out[i] = float64(tree.DistanceToRoot(tip))
	}
	return out
}

// CladeSizeDistribution records one sample per clade per tree.
type CladeSizeDistribution struct {
	scalar
}

func NewCladeSizeDistribution() *CladeSizeDistribution {
	return &CladeSizeDistribution{scalar: newTreeScalar(TypeCladeSizes, "Clade size distribution",
		"Number of tips below every node with two or more offspring",
		Options{Bins: 100, Min: 0, Max: 100})}
}

func (s *CladeSizeDistribution) CollectTree(tree model.SampledTree) {
	if tree == nil || tree.Len() == 0 || !s.begin() {
		return
	}
	for _, size := range CladeSizes(tree) {
		s.record(s.opts, float64(size))
	}
}

// Colless records Colless' imbalance index once per tree.
type Colless struct {
	scalar
}

func NewColless() *Colless {
	return &Colless{scalar: newTreeScalar(TypeColless, "Colless' index",
		"Sum of tip-count differences across bifurcations",
		Options{Bins: 50, Min: 0, Max: 500})}
}

func (s *Colless) CollectTree(tree model.SampledTree) {
	if tree == nil || tree.Len() == 0 || !s.begin() {
		return
	}
	s.record(s.opts, float64(CollessIndex(tree)))
}

// SackinMean records the mean tip-to-root distance of each tree.
type SackinMean struct {
	scalar
}

func NewSackinMean() *SackinMean {
	return &SackinMean{scalar: newTreeScalar(TypeSackinMean, "Sackin's index (mean)",
		"Mean number of hops from a tip to the root",
		Options{Bins: 50, Min: 0, Max: 1000})}
}

func (s *SackinMean) CollectTree(tree model.SampledTree) {
	d := SackinDistances(tree)
	if len(d) == 0 || !s.begin() {
		return
	}
	s.record(s.opts, Mean(d))
}

// SackinVariance records the unbiased variance of tip-to-root distances.
// Trees with fewer than two tips are skipped.
type SackinVariance struct {
	scalar
}

func NewSackinVariance() *SackinVariance {
	return &SackinVariance{scalar: newTreeScalar(TypeSackinVariance, "Sackin's index (variance)",
		"Variance of the number of hops from a tip to the root",
		Options{Bins: 50, Min: 0, Max: 1000})}
}

func (s *SackinVariance) CollectTree(tree model.SampledTree) {
	d := SackinDistances(tree)
	if len(d) < 2 || !s.begin() {
		return
	}
	s.record(s.opts, Variance(d))
}
