package stats

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"

	"popstat/internal/model"
)

// Observer is notified after each successful collection.
type Observer interface {
	Collected(typeTag string)
}

// Collection dispatches sampling ticks to the statistics that are due.
type Collection struct {
	defaultFrequency int
	all              []Statistic
	population       []PopulationStatistic
	trees            []TreeStatistic
	listeners        []TreeListener
	observer         Observer
}

// NewCollection classifies stats by the kind of input they declare.
func NewCollection(defaultFrequency int, stats ...Statistic) (*Collection, error) {
	if defaultFrequency <= 0 {
		return nil, fmt.Errorf("default sample frequency must be > 0")
	}
	c := &Collection{defaultFrequency: defaultFrequency}
	for _, s := range stats {
		if err := c.add(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collection) add(s Statistic) error {
	if s == nil {
		return fmt.Errorf("statistic is required")
	}
	caps := s.Capabilities()
	switch v := s.(type) {
	case TreeListener:
		if !caps.Push {
			return fmt.Errorf("%s: tree listener must declare push collection", s.TypeTag())
		}
		c.listeners = append(c.listeners, v)
	case TreeStatistic:
		c.trees = append(c.trees, v)
	case PopulationStatistic:
		if caps.RequiresGenealogy {
			return fmt.Errorf("%s: requires genealogy but only collects snapshots", s.TypeTag())
		}
		c.population = append(c.population, v)
	default:
		return fmt.Errorf("%s: statistic has no collection method", s.TypeTag())
	}
	c.all = append(c.all, s)
	return nil
}

// SetObserver installs o; nil disables notifications.
func (c *Collection) SetObserver(o Observer) {
	c.observer = o
}

func (c *Collection) due(s Statistic, generation int, burnin bool) bool {
	caps := s.Capabilities()
	if caps.Push {
		return false
	}
	if burnin && !caps.CollectDuringBurnin {
		return false
	}
	freq := c.defaultFrequency
	if !caps.UseDefaultFrequency() {
		freq = caps.SampleFrequency
	}
	return generation%freq == 0
}

// CollectPopulation feeds pop to every due snapshot statistic and returns how
// many were fed.
func (c *Collection) CollectPopulation(generation int, burnin bool, pop model.Collectible, rng *rand.Rand) int {
	n := 0
	for _, s := range c.population {
		if !c.due(s, generation, burnin) {
			continue
		}
		s.Collect(pop, rng)
		c.notify(s)
		n++
	}
	return n
}

// TreeDue reports whether any tree statistic wants a tree this generation,
// so the driver only samples when needed.
func (c *Collection) TreeDue(generation int, burnin bool) bool {
	for _, s := range c.trees {
		if c.due(s, generation, burnin) {
			return true
		}
	}
	return false
}

// CollectTree feeds tree to every due tree statistic in order.
func (c *Collection) CollectTree(generation int, burnin bool, tree model.SampledTree) int {
	n := 0
	for _, s := range c.trees {
		if !c.due(s, generation, burnin) {
			continue
		}
		s.CollectTree(tree)
		c.notify(s)
		n++
	}
	return n
}

func (c *Collection) notify(s Statistic) {
	if c.observer != nil {
		c.observer.Collected(s.TypeTag())
	}
}

func (c *Collection) Statistics() []Statistic {
	return append([]Statistic(nil), c.all...)
}

func (c *Collection) Listeners() []TreeListener {
	return append([]TreeListener(nil), c.listeners...)
}

// Summarize writes every report in registration order.
func (c *Collection) Summarize(w io.Writer) error {
	for i, s := range c.all {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := s.Summarize(w); err != nil {
			return fmt.Errorf("summarize %s: %w", s.TypeTag(), err)
		}
	}
	return nil
}

// Summaries renders each statistic's report separately for persistence.
func (c *Collection) Summaries() ([]model.StatisticSummary, error) {
	out := make([]model.StatisticSummary, 0, len(c.all))
	for _, s := range c.all {
		var buf bytes.Buffer
		if err := s.Summarize(&buf); err != nil {
			return nil, fmt.Errorf("summarize %s: %w", s.TypeTag(), err)
		}
		out = append(out, model.StatisticSummary{
			TypeTag:    s.TypeTag(),
			Identifier: s.Identifier(),
			Report:     buf.String(),
			Samples:    s.Samples(),
		})
	}
	return out, nil
}
