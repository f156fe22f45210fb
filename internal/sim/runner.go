package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"popstat/internal/model"
	"popstat/internal/stats"
)

// listenerBuffer is the number of trees a listener may lag behind the driver.
const listenerBuffer = 4

type RunResult struct {
	RunID        string
	Generations  int
	TreesSampled int
	Published    int
	Statistics   []stats.Statistic
	Summaries    []model.StatisticSummary
}

// Runner drives one simulation and the statistics of a document.
type Runner struct {
	doc     Document
	metrics *Metrics
}

// NewRunner validates doc. metrics may be nil.
func NewRunner(doc Document, metrics *Metrics) (*Runner, error) {
	if err := doc.Params.Validate(); err != nil {
		return nil, err
	}
	if doc.Mutation.Length <= 0 {
		return nil, fmt.Errorf("genotype length must be > 0")
	}
	return &Runner{doc: doc, metrics: metrics}, nil
}

// Run simulates the configured generations. Statistic blocks that fail to
// load are logged and skipped; the run fails only when none loads.
func (r *Runner) Run(ctx context.Context, runID string) (RunResult, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	p := r.doc.Params
	logger := log.WithFields(log.Fields{
		"run_id":      runID,
		"size":        p.Size,
		"generations": p.Generations,
		"seed":        p.Seed,
	})

	feed := NewTreeFeed(p.Epochs())
	list, err := stats.LoadStatistics(r.doc.Statistics, stats.Env{Feed: feed})
	if err != nil {
		logger.WithError(err).Warn("some statistics failed to load")
	}
	if len(list) == 0 {
		return RunResult{}, fmt.Errorf("no statistics configured")
	}
	collection, err := stats.NewCollection(p.SampleFrequency, list...)
	if err != nil {
		return RunResult{}, err
	}
	if r.metrics != nil {
		collection.SetObserver(r.metrics)
	}

	rng := rand.New(rand.NewSource(p.Seed))
	engine, err := NewEngine(p, r.doc.Fitness, r.doc.Mutation, rng)
	if err != nil {
		return RunResult{}, err
	}

	started := time.Now()
	logger.WithField("statistics", len(list)).Info("run started")

	g, gctx := errgroup.WithContext(ctx)
	pushBurnin := false
	for _, listener := range collection.Listeners() {
		listener := listener
		includeBurnin := listener.Capabilities().CollectDuringBurnin
		pushBurnin = pushBurnin || includeBurnin
		trees := feed.Subscribe(listenerBuffer, includeBurnin)
		g.Go(func() error {
			return listener.Listen(gctx, trees)
		})
	}

	d := &driver{
		params:     p,
		engine:     engine,
		rng:        rng,
		collection: collection,
		feed:       feed,
		metrics:    r.metrics,
		push:       len(collection.Listeners()) > 0,
		pushBurnin: pushBurnin,
	}
	g.Go(func() error {
		defer feed.Close()
		return d.run(gctx)
	})
	if err := g.Wait(); err != nil {
		return RunResult{}, err
	}

	summaries, err := collection.Summaries()
	if err != nil {
		return RunResult{}, err
	}
	logger.WithFields(log.Fields{
		"trees":   d.sampled,
		"elapsed": time.Since(started).String(),
	}).Info("run finished")

	return RunResult{
		RunID:        runID,
		Generations:  engine.Generation() + 1,
		TreesSampled: d.sampled,
		Published:    d.published,
		Statistics:   collection.Statistics(),
		Summaries:    summaries,
	}, nil
}

// driver owns the generation loop. Only its goroutine touches the engine.
type driver struct {
	params     Params
	engine     *Engine
	rng        *rand.Rand
	collection *stats.Collection
	feed       *TreeFeed
	metrics    *Metrics
	push       bool
	// pushBurnin is set when some listener takes trees during burn-in.
	pushBurnin bool

	// earlier holds the pinned first-epoch sample of a serial pair.
	earlier   []model.NodeID
	sampled   int
	published int
}

func (d *driver) run(ctx context.Context) error {
	sampler := Sampler{Size: d.params.SampleSize}
	for gen := 0; gen < d.params.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if gen > 0 {
			if err := d.engine.Step(); err != nil {
				return err
			}
		}
		d.metrics.Generation()

		burnin := d.params.InBurnin(gen)
		d.collection.CollectPopulation(gen, burnin, d.engine, d.rng)
		if d.collection.TreeDue(gen, burnin) {
			tree, err := sampler.Sample(d.engine, d.rng)
			if err != nil {
				return fmt.Errorf("sample generation %d: %w", gen, err)
			}
			d.sampled++
			d.metrics.TreeSampled()
			d.collection.CollectTree(gen, burnin, tree)
		}
		if d.push && (!burnin || d.pushBurnin) {
			if err := d.feedTrees(ctx, gen, burnin); err != nil {
				return err
			}
		}
	}
	return d.engine.Unpin(d.earlier...)
}

// feedTrees publishes one tree per sampling tick. With a serial gap, half the
// sample is drawn and pinned gap generations before the tick and joined with
// the other half at the tick.
func (d *driver) feedTrees(ctx context.Context, gen int, burnin bool) error {
	freq, gap, size := d.params.SampleFrequency, d.params.SerialGap, d.params.SampleSize
	if gap > 0 && (gen+gap)%freq == 0 {
		if err := d.engine.Unpin(d.earlier...); err != nil {
			return err
		}
		d.earlier = DrawNodes(d.engine, d.rng, size/2)
		d.engine.Pin(d.earlier...)
		return nil
	}
	if gen%freq != 0 {
		return nil
	}

	var tips []model.NodeID
	switch {
	case gap == 0:
		tips = DrawNodes(d.engine, d.rng, size)
	case len(d.earlier) > 0:
		tips = append(DrawNodes(d.engine, d.rng, size-len(d.earlier)), d.earlier...)
	default:
		return nil
	}

	tree, err := Subtree(d.engine.Tree(), tips, d.params.Size)
	if err != nil {
		return fmt.Errorf("build fed tree at generation %d: %w", gen, err)
	}
	if len(d.earlier) > 0 {
		if err := d.engine.Unpin(d.earlier...); err != nil {
			return err
		}
		d.earlier = nil
	}
	d.sampled++
	d.metrics.TreeSampled()
	delivered, err := d.feed.Publish(ctx, tree, burnin)
	if err != nil {
		return err
	}
	if delivered > 0 {
		d.published++
		d.metrics.TreePublished()
	}
	return nil
}
