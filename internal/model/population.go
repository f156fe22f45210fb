package model

// Individual is one member of a population snapshot. Node points into the
// population's ancestry tree and is NoNode when ancestry is not tracked.
type Individual struct {
	Fitness         float64
	RelativeFitness float64
	Node            NodeID
}

// Genealogy is the read contract statistics need from any ancestry tree.
type Genealogy interface {
	Len() int
	Root() NodeID
	Parent(id NodeID) NodeID
	Offspring(id NodeID) []NodeID
	Node(id NodeID) (Node, bool)
	DistanceToRoot(id NodeID) int
}

// SampledTree is a genealogy drawn for a sample of individuals. It stays
// unchanged while statistics consume it.
type SampledTree interface {
	Genealogy
	Tips() []NodeID
	NodeTimes() []float64
	MaxHeight() int
	Breakpoints() int
	PopulationSize() int
}

// Collectible is a read-only view of a population at one sampling tick.
type Collectible interface {
	Size() int
	At(i int) Individual
	// Ancestry returns nil when the engine does not track parents.
	Ancestry() Genealogy
}

// Population is a plain Collectible backed by a slice.
type Population struct {
	Individuals []Individual
	Genealogy   Genealogy
}

func (p *Population) Size() int {
	if p == nil {
		return 0
	}
	return len(p.Individuals)
}

func (p *Population) At(i int) Individual {
	return p.Individuals[i]
}

func (p *Population) Ancestry() Genealogy {
	if p == nil || p.Genealogy == nil {
		return nil
	}
	return p.Genealogy
}

var (
	_ SampledTree = (*Tree)(nil)
	_ Collectible = (*Population)(nil)
)
