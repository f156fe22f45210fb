package sim

import (
	"math/rand"

	"popstat/internal/config"
)

const (
	TypeAdditiveFitness = "fitness.additive"
	BlockFitness        = "fitness"

	KeySelection = "selection"
	KeyMean      = "mean"
	KeyStdev     = "stdev"

	// minFitness keeps every individual selectable so the cumulative weights
	// never collapse to zero.
	minFitness = 1e-9
)

// AdditiveFitness scores a genotype as 1 + selection * (derived fraction)
// plus an optional normally distributed environmental term.
type AdditiveFitness struct {
	Selection float64
	Mean      float64
	Stdev     float64
}

func (f *AdditiveFitness) TypeTag() string { return TypeAdditiveFitness }

func (f *AdditiveFitness) ApplyConfig(b *config.Block) error {
	if err := b.ExpectType(TypeAdditiveFitness); err != nil {
		return err
	}
	selection, err := b.RequireFloat(KeySelection)
	if err != nil {
		return err
	}
	stdev := b.Float(KeyStdev, f.Stdev)
	if stdev < 0 {
		return config.Errorf(b.Label(), "stdev must be >= 0, got %v", stdev)
	}
	f.Selection = selection
	f.Mean = b.Float(KeyMean, f.Mean)
	f.Stdev = stdev
	return nil
}

func (f *AdditiveFitness) ConfigBlock() *config.Block {
	return config.NewBlock(BlockFitness, TypeAdditiveFitness).
		SetFloat(KeySelection, f.Selection).
		SetFloat(KeyMean, f.Mean).
		SetFloat(KeyStdev, f.Stdev)
}

// Score evaluates g. rng is only consulted when Stdev is positive.
func (f *AdditiveFitness) Score(g Genotype, rng *rand.Rand) float64 {
	w := 1 + f.Selection*g.DerivedFraction() + f.Mean
	if f.Stdev > 0 && rng != nil {
		w += rng.NormFloat64() * f.Stdev
	}
	if w < minFitness {
		return minFitness
	}
	return w
}

var _ config.Configurable = (*AdditiveFitness)(nil)
