package stats

import (
	"fmt"
	"io"
	"sort"

	"popstat/internal/config"
	"popstat/internal/histogram"
	"popstat/internal/model"
)

const (
	TypeSampleTMRCA         = "stat.sample.tmrca"
	TypeCoalescentIntervals = "stat.coalescent.intervals"
	TypeBreakpoints         = "stat.breakpoints"
)

// SampleTMRCA records the largest tip-to-root distance of each sampled tree.
type SampleTMRCA struct {
	scalar
}

func NewSampleTMRCA() *SampleTMRCA {
	return &SampleTMRCA{scalar: newTreeScalar(TypeSampleTMRCA, "Sample TMRCA",
		"Depth of the most recent common ancestor of the sample",
		Options{Bins: 100, Min: 0, Max: 10000})}
}

func (s *SampleTMRCA) CollectTree(tree model.SampledTree) {
	if tree == nil || tree.Len() == 0 || !s.begin() {
		return
	}
	s.record(s.opts, float64(tree.MaxHeight()))
}

// Breakpoints records the recombination breakpoint count of each tree.
type Breakpoints struct {
	scalar
}

func NewBreakpoints() *Breakpoints {
	return &Breakpoints{scalar: newTreeScalar(TypeBreakpoints, "Breakpoints",
		"Recombination breakpoints recorded in the sampled genealogy",
		Options{Bins: 50, Min: 0, Max: 50})}
}

func (s *Breakpoints) CollectTree(tree model.SampledTree) {
	if tree == nil || tree.Len() == 0 || !s.begin() {
		return
	}
	s.record(s.opts, float64(tree.Breakpoints()))
}

// CoalescentIntervals keeps one histogram per coalescence rank: the k-th
// youngest coalescence time of every tree, scaled by population size, lands
// in histogram k.
type CoalescentIntervals struct {
	base
	ranks []*histogram.Histogram
}

func NewCoalescentIntervals() *CoalescentIntervals {
	return &CoalescentIntervals{base: base{
		tag:  TypeCoalescentIntervals,
		name: "Coalescent interval times",
		desc: "Distribution of each ordered coalescence time, in units of N generations",
		opts: Options{Bins: 50, Min: 0, Max: 5},

		genealogy: true,
	}}
}

func (s *CoalescentIntervals) ApplyConfig(b *config.Block) error {
	return s.applyOptions(b)
}

func (s *CoalescentIntervals) ConfigBlock() *config.Block {
	return s.optionsBlock()
}

func (s *CoalescentIntervals) CollectTree(tree model.SampledTree) {
	if tree == nil || tree.Len() == 0 {
		return
	}
	times := append([]float64(nil), tree.NodeTimes()...)
	if len(times) == 0 || !s.begin() {
		return
	}
	sort.Float64s(times)
	scale := float64(tree.PopulationSize())
	if scale <= 0 {
		scale = 1
	}
	for len(s.ranks) < len(times) {
		s.ranks = append(s.ranks, s.opts.histogram())
	}
	for i, t := range times {
		s.ranks[i].Add(t / scale)
	}
}

// Ranks is the number of coalescence ranks observed so far.
func (s *CoalescentIntervals) Ranks() int { return len(s.ranks) }

// RankMean is the mean scaled time of the rank-th coalescence (0-based).
func (s *CoalescentIntervals) RankMean(rank int) float64 {
	if rank < 0 || rank >= len(s.ranks) {
		return 0
	}
	return s.ranks[rank].Mean()
}

func (s *CoalescentIntervals) Samples() []float64 { return nil }

func (s *CoalescentIntervals) Summarize(w io.Writer) error {
	if err := s.finish(); err != nil {
		return err
	}
	if err := s.header(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "ranks: %d\n", len(s.ranks)); err != nil {
		return err
	}
	for i, h := range s.ranks {
		if _, err := fmt.Fprintf(w, "rank %d: mean %s (n=%d)\n", i+1, formatFloat(h.Mean()), h.Count()); err != nil {
			return err
		}
	}
	for i, h := range s.ranks {
		if _, err := fmt.Fprintf(w, "-- rank %d --\n", i+1); err != nil {
			return err
		}
		if err := h.Emit(w); err != nil {
			return err
		}
	}
	return nil
}
