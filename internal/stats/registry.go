package stats

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"popstat/internal/config"
)

// StatisticsBlock is the element grouping statistic blocks in a run document.
const StatisticsBlock = "statistics"

var (
	ErrStatisticExists   = errors.New("statistic already registered")
	ErrStatisticNotFound = errors.New("statistic not found")
)

// Env carries the run collaborators a statistic may need at construction.
type Env struct {
	Feed EpochSource
}

// Factory builds a statistic with default options.
type Factory func(env Env) (Statistic, error)

var statisticRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func init() {
	builtins := map[string]Factory{
		TypeMeanFitness:         func(Env) (Statistic, error) { return NewMeanFitness(), nil },
		TypeFitnessVariance:     func(Env) (Statistic, error) { return NewFitnessVariance(), nil },
		TypeTMRCA:               func(Env) (Statistic, error) { return NewTMRCA(), nil },
		TypePairwiseCoalescence: func(Env) (Statistic, error) { return NewPairwiseCoalescence(), nil },
		TypeSampleTMRCA:         func(Env) (Statistic, error) { return NewSampleTMRCA(), nil },
		TypeCladeSizes:          func(Env) (Statistic, error) { return NewCladeSizeDistribution(), nil },
		TypeColless:             func(Env) (Statistic, error) { return NewColless(), nil },
		TypeSackinMean:          func(Env) (Statistic, error) { return NewSackinMean(), nil },
		TypeSackinVariance:      func(Env) (Statistic, error) { return NewSackinVariance(), nil },
		TypeCoalescentIntervals: func(Env) (Statistic, error) { return NewCoalescentIntervals(), nil },
		TypeBreakpoints:         func(Env) (Statistic, error) { return NewBreakpoints(), nil },
		TypeSerialPairwiseCoalescence: func(env Env) (Statistic, error) {
			return NewSerialPairwiseCoalescence(env.Feed)
		},
	}
	for tag, f := range builtins {
		if err := Register(tag, f); err != nil {
			panic(err)
		}
	}
}

// Register adds a statistic factory under its type tag.
func Register(tag string, f Factory) error {
	if tag == "" {
		return errors.New("statistic type tag is required")
	}
	if f == nil {
		return errors.New("statistic factory is required")
	}

	statisticRegistry.mu.Lock()
	defer statisticRegistry.mu.Unlock()

	if _, exists := statisticRegistry.m[tag]; exists {
		return fmt.Errorf("%w: %s", ErrStatisticExists, tag)
	}
	statisticRegistry.m[tag] = f
	return nil
}

// New builds the statistic registered under tag with default options.
func New(tag string, env Env) (Statistic, error) {
	statisticRegistry.mu.RLock()
	f, ok := statisticRegistry.m[tag]
	statisticRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStatisticNotFound, tag)
	}
	return f(env)
}

// ListTypes returns every registered type tag, sorted.
func ListTypes() []string {
	statisticRegistry.mu.RLock()
	defer statisticRegistry.mu.RUnlock()

	tags := make([]string, 0, len(statisticRegistry.m))
	for tag := range statisticRegistry.m {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// FromBlock routes b by its type attribute and applies it to a fresh
// statistic.
func FromBlock(b *config.Block, env Env) (Statistic, error) {
	tag, err := b.RequireString(config.TypeKey)
	if err != nil {
		return nil, err
	}
	s, err := New(tag, env)
	if err != nil {
		if errors.Is(err, ErrStatisticNotFound) {
			return nil, config.Errorf(b.Label(), "unknown statistic type %q", tag)
		}
		return nil, err
	}
	if err := s.ApplyConfig(b); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadStatistics builds every statistic child of b. Blocks that fail are
// skipped; their errors are returned together with the statistics that
// loaded.
func LoadStatistics(b *config.Block, env Env) ([]Statistic, error) {
	if b == nil {
		return nil, nil
	}
	var result *multierror.Error
	var out []Statistic
	for _, child := range b.Children {
		if child.Name != BlockName {
			continue
		}
		s, err := FromBlock(child, env)
		if err != nil {
			log.WithError(err).WithField("block", child.Label()).Warn("skipping statistic")
			result = multierror.Append(result, err)
			continue
		}
		out = append(out, s)
	}
	return out, result.ErrorOrNil()
}

// EncodeStatistics serializes stats into a statistics block.
func EncodeStatistics(stats []Statistic) *config.Block {
	b := config.NewBlock(StatisticsBlock, "")
	for _, s := range stats {
		b.AddChild(s.ConfigBlock())
	}
	return b
}
