package sim

import (
	"math/rand"

	"popstat/internal/config"
)

const (
	TypeBiallelicMutation = "mutation.biallelic"
	BlockMutation         = "mutation"

	KeyLength          = "length"
	KeyMutationRate    = "mutation.rate"
	KeyForwardMutation = "forward.mutation"
	KeyBackMutation    = "back.mutation"
)

// Genotype is a sequence of biallelic sites; 0 is ancestral, 1 derived.
type Genotype []uint8

func (g Genotype) Clone() Genotype {
	return append(Genotype(nil), g...)
}

// DerivedFraction is the share of sites carrying the derived allele, 0 for an
// empty genotype.
func (g Genotype) DerivedFraction() float64 {
	if len(g) == 0 {
		return 0
	}
	derived := 0
	for _, site := range g {
		if site != 0 {
			derived++
		}
	}
	return float64(derived) / float64(len(g))
}

// Recombine copies a up to breakpoint and b from breakpoint on.
func Recombine(a, b Genotype, breakpoint int) Genotype {
	out := a.Clone()
	if breakpoint < 0 {
		breakpoint = 0
	}
	for i := breakpoint; i < len(out) && i < len(b); i++ {
		out[i] = b[i]
	}
	return out
}

// BiallelicMutation hits each site with probability Rate. A hit flips an
// ancestral site with probability Forward and a derived site with
// probability Back.
type BiallelicMutation struct {
	Length  int
	Rate    float64
	Forward float64
	Back    float64
}

func DefaultMutation() BiallelicMutation {
	return BiallelicMutation{Length: 100, Rate: 1e-3, Forward: 1, Back: 1}
}

func (m *BiallelicMutation) TypeTag() string { return TypeBiallelicMutation }

func (m *BiallelicMutation) ApplyConfig(b *config.Block) error {
	if err := b.ExpectType(TypeBiallelicMutation); err != nil {
		return err
	}
	rate, err := b.RequireFloat(KeyMutationRate)
	if err != nil {
		return err
	}
	next := BiallelicMutation{
		Length:  b.Int(KeyLength, m.Length),
		Rate:    rate,
		Forward: b.Float(KeyForwardMutation, m.Forward),
		Back:    b.Float(KeyBackMutation, m.Back),
	}
	switch {
	case next.Length <= 0:
		return config.Errorf(b.Label(), "length must be > 0, got %d", next.Length)
	case !probability(next.Rate):
		return config.Errorf(b.Label(), "mutation rate must be in [0, 1], got %v", next.Rate)
	case !probability(next.Forward) || !probability(next.Back):
		return config.Errorf(b.Label(), "forward and back mutation must be in [0, 1]")
	}
	*m = next
	return nil
}

func (m *BiallelicMutation) ConfigBlock() *config.Block {
	return config.NewBlock(BlockMutation, TypeBiallelicMutation).
		SetInt(KeyLength, m.Length).
		SetFloat(KeyMutationRate, m.Rate).
		SetFloat(KeyForwardMutation, m.Forward).
		SetFloat(KeyBackMutation, m.Back)
}

// Mutate applies mutations to g in place and returns the number of flipped
// sites.
func (m *BiallelicMutation) Mutate(g Genotype, rng *rand.Rand) int {
	if m.Rate <= 0 || rng == nil {
		return 0
	}
	flipped := 0
	for i := range g {
		if rng.Float64() >= m.Rate {
			continue
		}
		p := m.Forward
		if g[i] != 0 {
			p = m.Back
		}
		if rng.Float64() < p {
			g[i] ^= 1
			flipped++
		}
	}
	return flipped
}

func probability(p float64) bool {
	return p >= 0 && p <= 1
}

var _ config.Configurable = (*BiallelicMutation)(nil)
