// Package sim is a reference Wright-Fisher driver that feeds population
// snapshots and sampled genealogies to a statistics collection.
package sim

import (
	"fmt"

	"popstat/internal/config"
)

const (
	TypePopulation  = "population.wrightfisher"
	BlockPopulation = "population"

	KeySize              = "size"
	KeyGenerations       = "generations"
	KeyBurnin            = "burnin"
	KeySampleFrequency   = "sample.frequency"
	KeySampleSize        = "sample.size"
	KeySerialGap         = "serial.gap"
	KeyRecombinationRate = "recombination.rate"
	KeySeed              = "seed"
)

// Params controls the population and its sampling schedule.
type Params struct {
	Size        int
	Generations int
	Burnin      int
	// SampleFrequency is the default collection interval for statistics
	// that do not set their own.
	SampleFrequency int
	SampleSize      int
	// SerialGap, when positive, makes the tree feed pair every sample with
	// one drawn SerialGap generations earlier.
	SerialGap         int
	RecombinationRate float64
	Seed              int64
}

func DefaultParams() Params {
	return Params{
		Size:            100,
		Generations:     1000,
		Burnin:          200,
		SampleFrequency: 10,
		SampleSize:      10,
		Seed:            1,
	}
}

func (p *Params) TypeTag() string { return TypePopulation }

// ApplyConfig reads the population block. size is mandatory; every other
// attribute falls back to its current value.
func (p *Params) ApplyConfig(b *config.Block) error {
	if err := b.ExpectType(TypePopulation); err != nil {
		return err
	}
	size, err := b.RequireInt(KeySize)
	if err != nil {
		return err
	}
	next := *p
	next.Size = size
	next.Generations = b.Int(KeyGenerations, p.Generations)
	next.Burnin = b.Int(KeyBurnin, p.Burnin)
	next.SampleFrequency = b.Int(KeySampleFrequency, p.SampleFrequency)
	next.SampleSize = b.Int(KeySampleSize, p.SampleSize)
	next.SerialGap = b.Int(KeySerialGap, p.SerialGap)
	next.RecombinationRate = b.Float(KeyRecombinationRate, p.RecombinationRate)
	next.Seed = b.Int64(KeySeed, p.Seed)
	if err := next.Validate(); err != nil {
		return config.Errorf(b.Label(), "%v", err)
	}
	*p = next
	return nil
}

func (p *Params) ConfigBlock() *config.Block {
	b := config.NewBlock(BlockPopulation, TypePopulation)
	b.SetInt(KeySize, p.Size)
	b.SetInt(KeyGenerations, p.Generations)
	b.SetInt(KeyBurnin, p.Burnin)
	b.SetInt(KeySampleFrequency, p.SampleFrequency)
	b.SetInt(KeySampleSize, p.SampleSize)
	if p.SerialGap > 0 {
		b.SetInt(KeySerialGap, p.SerialGap)
	}
	if p.RecombinationRate > 0 {
		b.SetFloat(KeyRecombinationRate, p.RecombinationRate)
	}
	b.SetInt64(KeySeed, p.Seed)
	return b
}

func (p Params) Validate() error {
	if p.Size < 2 {
		return fmt.Errorf("population size must be >= 2")
	}
	if p.Generations <= 0 {
		return fmt.Errorf("generations must be > 0")
	}
	if p.Burnin < 0 || p.Burnin >= p.Generations {
		return fmt.Errorf("burnin must be in [0, generations)")
	}
	if p.SampleFrequency <= 0 {
		return fmt.Errorf("sample frequency must be > 0")
	}
	if p.SampleSize < 2 || p.SampleSize > p.Size {
		return fmt.Errorf("sample size must be in [2, population size]")
	}
	if p.SerialGap < 0 || (p.SerialGap > 0 && p.SerialGap >= p.SampleFrequency) {
		return fmt.Errorf("serial gap must be in [0, sample frequency)")
	}
	if p.RecombinationRate < 0 || p.RecombinationRate > 1 {
		return fmt.Errorf("recombination rate must be in [0, 1]")
	}
	return nil
}

// Epochs is the number of sampling epochs mixed into each fed tree.
func (p Params) Epochs() int {
	if p.SerialGap > 0 {
		return 2
	}
	return 1
}

// InBurnin reports whether generation is still part of burn-in.
func (p Params) InBurnin(generation int) bool {
	return generation < p.Burnin
}

var _ config.Configurable = (*Params)(nil)
