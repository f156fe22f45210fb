// Package stats collects summary statistics over population snapshots and
// sampled genealogies.
package stats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"

	log "github.com/sirupsen/logrus"

	"popstat/internal/config"
	"popstat/internal/histogram"
	"popstat/internal/model"
)

// Attribute keys shared by every statistic block.
const (
	KeySampleFrequency = "sample.frequency"
	KeyHistogramBins   = "histogram.bins"
	KeyHistogramMin    = "histogram.min"
	KeyHistogramMax    = "histogram.max"
	KeyIncludeBurnin   = "include.burnin"

	BlockName = "statistic"
)

var (
	ErrSummarized = errors.New("statistic already summarized")
	ErrCollecting = errors.New("statistic configuration is frozen once collection starts")
)

// Capabilities are consulted once by the driver when a run is set up.
type Capabilities struct {
	RequiresGenealogy   bool
	CollectDuringBurnin bool
	// SampleFrequency is the collection interval in generations; 0 defers to
	// the collection default.
	SampleFrequency int
	// Push marks statistics fed by a tree feed instead of the polling loop.
	Push bool
}

func (c Capabilities) UseDefaultFrequency() bool {
	return c.SampleFrequency <= 0
}

// Statistic is the behaviour shared by every statistic kind.
type Statistic interface {
	config.Configurable
	Identifier() string
	Description() string
	Capabilities() Capabilities
	// Samples is the collected scalar series; nil for distribution-only
	// statistics.
	Samples() []float64
	// Summarize writes the final report. It may be called once.
	Summarize(w io.Writer) error
}

// PopulationStatistic collects from population snapshots. rng is owned by
// the caller.
type PopulationStatistic interface {
	Statistic
	Collect(pop model.Collectible, rng *rand.Rand)
}

// TreeStatistic collects from sampled genealogies on the polling schedule.
type TreeStatistic interface {
	Statistic
	CollectTree(tree model.SampledTree)
}

// TreeListener consumes trees pushed by a sampler until the channel closes.
type TreeListener interface {
	Statistic
	Listen(ctx context.Context, trees <-chan model.SampledTree) error
}

// Options is the user-tunable part of a statistic.
type Options struct {
	SampleFrequency     int
	Bins                int
	Min, Max            float64
	CollectDuringBurnin bool
}

func (o *Options) apply(b *config.Block) {
	o.SampleFrequency = b.Int(KeySampleFrequency, o.SampleFrequency)
	o.CollectDuringBurnin = b.Bool(KeyIncludeBurnin, o.CollectDuringBurnin)

	bins := b.Int(KeyHistogramBins, o.Bins)
	lo := b.Float(KeyHistogramMin, o.Min)
	hi := b.Float(KeyHistogramMax, o.Max)
	if bins <= 0 || !finite(lo) || !finite(hi) || hi <= lo {
		log.WithFields(log.Fields{
			"block": b.Label(),
			"bins":  bins,
			"min":   lo,
			"max":   hi,
		}).Warn("invalid histogram bounds, keeping defaults")
		return
	}
	o.Bins, o.Min, o.Max = bins, lo, hi
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (o Options) write(b *config.Block) {
	if o.SampleFrequency > 0 {
		b.SetInt(KeySampleFrequency, o.SampleFrequency)
	}
	b.SetInt(KeyHistogramBins, o.Bins)
	b.SetFloat(KeyHistogramMin, o.Min)
	b.SetFloat(KeyHistogramMax, o.Max)
	if o.CollectDuringBurnin {
		b.SetBool(KeyIncludeBurnin, true)
	}
}

func (o Options) histogram() *histogram.Histogram {
	return histogram.MustNew(o.Bins, o.Min, o.Max)
}

type lifecycle int

const (
	created lifecycle = iota
	configured
	collecting
	summarized
)

// base carries identity, options and lifecycle for every statistic.
type base struct {
	tag   string
	name  string
	desc  string
	opts  Options
	state lifecycle
	// genealogy marks statistics fed with sampled trees.
	genealogy bool
}

func (b *base) TypeTag() string     { return b.tag }
func (b *base) Identifier() string  { return b.name }
func (b *base) Description() string { return b.desc }

func (b *base) Capabilities() Capabilities {
	return Capabilities{
		RequiresGenealogy:   b.genealogy,
		CollectDuringBurnin: b.opts.CollectDuringBurnin,
		SampleFrequency:     b.opts.SampleFrequency,
	}
}

func (b *base) Options() Options { return b.opts }

func (b *base) applyOptions(block *config.Block) error {
	if err := block.ExpectType(b.tag); err != nil {
		return err
	}
	switch b.state {
	case collecting:
		return ErrCollecting
	case summarized:
		return ErrSummarized
	}
	b.opts.apply(block)
	b.state = configured
	return nil
}

func (b *base) optionsBlock() *config.Block {
	block := config.NewBlock(BlockName, b.tag)
	b.opts.write(block)
	return block
}

// begin moves into the collecting state; false once summarized.
func (b *base) begin() bool {
	if b.state == summarized {
		return false
	}
	b.state = collecting
	return true
}

func (b *base) finish() error {
	if b.state == summarized {
		return ErrSummarized
	}
	b.state = summarized
	return nil
}

func (b *base) header(w io.Writer) error {
	_, err := fmt.Fprintf(w, "== %s (%s) ==\n", b.name, b.tag)
	return err
}

// series is a scalar sequence with a histogram of observations.
type series struct {
	values []float64
	hist   *histogram.Histogram
}

func (s *series) record(opts Options, v float64) {
	s.values = append(s.values, v)
	s.observe(opts, v)
}

func (s *series) observe(opts Options, v float64) {
	if s.hist == nil {
		s.hist = opts.histogram()
	}
	s.hist.Add(v)
}

func (s *series) write(w io.Writer, opts Options) error {
	if _, err := fmt.Fprintf(w, "samples: %d\nmean: %s\nvariance: %s\n",
		len(s.values), formatFloat(Mean(s.values)), formatFloat(Variance(s.values))); err != nil {
		return err
	}
	hist := s.hist
	if hist == nil {
		hist = opts.histogram()
	}
	return hist.Emit(w)
}

// scalar is the common shape of statistics that append one value per
// observation.
type scalar struct {
	base
	series
}

func newScalar(tag, name, desc string, opts Options) scalar {
	return scalar{base: base{tag: tag, name: name, desc: desc, opts: opts}}
}

func newTreeScalar(tag, name, desc string, opts Options) scalar {
	s := newScalar(tag, name, desc, opts)
	s.genealogy = true
	return s
}

func (s *scalar) ApplyConfig(b *config.Block) error {
	return s.applyOptions(b)
}

func (s *scalar) ConfigBlock() *config.Block {
	return s.optionsBlock()
}

func (s *scalar) Samples() []float64 {
	return append([]float64(nil), s.values...)
}

func (s *scalar) Summarize(w io.Writer) error {
	if err := s.finish(); err != nil {
		return err
	}
	if err := s.header(w); err != nil {
		return err
	}
	return s.series.write(w, s.opts)
}
