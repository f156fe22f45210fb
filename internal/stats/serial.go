package stats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"popstat/internal/config"
	"popstat/internal/histogram"
	"popstat/internal/model"
)

const TypeSerialPairwiseCoalescence = "stat.serial.pairwise.coalescence"

// MaxSerialEpochs is the largest number of sampling epochs a serial tree may
// mix.
const MaxSerialEpochs = 2

var ErrTooManyEpochs = errors.New("serial sampler reports too many sampling epochs")

// EpochSource is the part of a serial tree sampler a statistic inspects at
// construction.
type EpochSource interface {
	Epochs() int
}

// SerialPairwiseCoalescence measures pairwise coalescence in trees whose tips
// were sampled at up to two epochs. Pairs from the same epoch and pairs
// spanning epochs are kept in separate histograms. Trees arrive through
// Listen, never through the polling schedule.
type SerialPairwiseCoalescence struct {
	base
	same *histogram.Histogram
	diff *histogram.Histogram
}

func NewSerialPairwiseCoalescence(src EpochSource) (*SerialPairwiseCoalescence, error) {
	if src == nil {
		return nil, errors.New("serial pairwise coalescence requires a tree sampler")
	}
	if n := src.Epochs(); n > MaxSerialEpochs {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrTooManyEpochs, n, MaxSerialEpochs)
	}
	return &SerialPairwiseCoalescence{base: base{
		tag:  TypeSerialPairwiseCoalescence,
		name: "Serial pairwise coalescence time",
		desc: "Pairwise coalescence time of serially sampled tips, split by epoch",
		opts: Options{Bins: 50, Min: 0, Max: 5},
	}}, nil
}

func (s *SerialPairwiseCoalescence) Capabilities() Capabilities {
	return Capabilities{
		RequiresGenealogy:   true,
		CollectDuringBurnin: s.opts.CollectDuringBurnin,
		SampleFrequency:     math.MaxInt,
		Push:                true,
	}
}

func (s *SerialPairwiseCoalescence) ApplyConfig(b *config.Block) error {
	return s.applyOptions(b)
}

// ConfigBlock omits the sample frequency, which is fixed for push-driven
// statistics.
func (s *SerialPairwiseCoalescence) ConfigBlock() *config.Block {
	opts := s.opts
	opts.SampleFrequency = 0
	block := config.NewBlock(BlockName, s.tag)
	opts.write(block)
	return block
}

// Listen consumes trees until the channel is closed or ctx is done.
func (s *SerialPairwiseCoalescence) Listen(ctx context.Context, trees <-chan model.SampledTree) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tree, ok := <-trees:
			if !ok {
				return nil
			}
			s.Consume(tree)
		}
	}
}

// Consume processes one pushed tree. Trees with fewer than two tips record
// nothing.
func (s *SerialPairwiseCoalescence) Consume(tree model.SampledTree) {
	if tree == nil || tree.Len() == 0 {
		return
	}
	tips := tree.Tips()
	if len(tips) < 2 || !s.begin() {
		return
	}
	if s.same == nil {
		s.same = s.opts.histogram()
		s.diff = s.opts.histogram()
	}
	scale := float64(tree.PopulationSize())
	if scale <= 0 {
		scale = 1
	}

	// Depths are computed per call so nothing is cached on the shared tree.
	depths := make([]int, len(tips))
	for i, tip := range tips {
		depths[i] = tree.DistanceToRoot(tip)
	}
	for i := 0; i < len(tips); i++ {
		for j := i + 1; j < len(tips); j++ {
			steps, ok := alignedCoalescence(tree, tips[i], depths[i], tips[j], depths[j])
			if !ok {
				continue
			}
			v := float64(steps) / scale
			if depths[i] == depths[j] {
				s.same.Add(v)
			} else {
				s.diff.Add(v)
			}
		}
	}
}

// SameEpochMean and CrossEpochMean are the running means of each class.
func (s *SerialPairwiseCoalescence) SameEpochMean() float64 {
	if s.same == nil {
		return 0
	}
	return s.same.Mean()
}

func (s *SerialPairwiseCoalescence) CrossEpochMean() float64 {
	if s.diff == nil {
		return 0
	}
	return s.diff.Mean()
}

func (s *SerialPairwiseCoalescence) Samples() []float64 { return nil }

func (s *SerialPairwiseCoalescence) Summarize(w io.Writer) error {
	if err := s.finish(); err != nil {
		return err
	}
	if err := s.header(w); err != nil {
		return err
	}
	same, diff := s.same, s.diff
	if same == nil {
		same, diff = s.opts.histogram(), s.opts.histogram()
	}
	if _, err := fmt.Fprintf(w, "same epoch: pairs %d mean %s\n", same.Count(), formatFloat(same.Mean())); err != nil {
		return err
	}
	if err := same.Emit(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "different epoch: pairs %d mean %s\n", diff.Count(), formatFloat(diff.Mean())); err != nil {
		return err
	}
	return diff.Emit(w)
}
