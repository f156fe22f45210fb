package sim

import (
	"popstat/internal/config"
	"popstat/internal/stats"
)

// RootBlock is the root element of a run document.
const RootBlock = "popstat"

// Document is a complete run configuration. Statistics stay as raw blocks
// until the run builds its tree feed, because some statistics inspect the
// feed when constructed.
type Document struct {
	Params     Params
	Fitness    AdditiveFitness
	Mutation   BiallelicMutation
	Statistics *config.Block
}

// DefaultStatistics lists the statistics a default document enables.
var DefaultStatistics = []string{
	stats.TypeMeanFitness,
	stats.TypeFitnessVariance,
	stats.TypeTMRCA,
	stats.TypePairwiseCoalescence,
	stats.TypeSampleTMRCA,
	stats.TypeCladeSizes,
	stats.TypeColless,
	stats.TypeSackinMean,
	stats.TypeSackinVariance,
	stats.TypeCoalescentIntervals,
	stats.TypeBreakpoints,
}

func DefaultDocument() (Document, error) {
	list := make([]stats.Statistic, 0, len(DefaultStatistics))
	for _, tag := range DefaultStatistics {
		s, err := stats.New(tag, stats.Env{})
		if err != nil {
			return Document{}, err
		}
		list = append(list, s)
	}
	return Document{
		Params:     DefaultParams(),
		Fitness:    AdditiveFitness{Selection: 0.01},
		Mutation:   DefaultMutation(),
		Statistics: stats.EncodeStatistics(list),
	}, nil
}

// ParseDocument reads a run document. Missing fitness or mutation blocks keep
// their defaults; the population block is mandatory.
func ParseDocument(root *config.Block) (Document, error) {
	if root == nil || root.Name != RootBlock {
		name := "<nil>"
		if root != nil {
			name = root.Name
		}
		return Document{}, config.Errorf(name, "expected <%s> document", RootBlock)
	}

	doc := Document{
		Params:   DefaultParams(),
		Mutation: DefaultMutation(),
	}
	population := root.Child(BlockPopulation)
	if population == nil {
		return Document{}, config.Errorf(root.Label(), "missing <%s> block", BlockPopulation)
	}
	if err := doc.Params.ApplyConfig(population); err != nil {
		return Document{}, err
	}
	if b := root.Child(BlockFitness); b != nil {
		if err := doc.Fitness.ApplyConfig(b); err != nil {
			return Document{}, err
		}
	}
	if b := root.Child(BlockMutation); b != nil {
		if err := doc.Mutation.ApplyConfig(b); err != nil {
			return Document{}, err
		}
	}
	doc.Statistics = root.Child(stats.StatisticsBlock)
	if doc.Statistics == nil {
		doc.Statistics = config.NewBlock(stats.StatisticsBlock, "")
	}
	return doc, nil
}

// Block serializes the document so that ParseDocument restores it.
func (d Document) Block() *config.Block {
	root := config.NewBlock(RootBlock, "")
	root.AddChild(d.Params.ConfigBlock())
	root.AddChild(d.Fitness.ConfigBlock())
	root.AddChild(d.Mutation.ConfigBlock())
	statistics := d.Statistics
	if statistics == nil {
		statistics = config.NewBlock(stats.StatisticsBlock, "")
	}
	root.AddChild(statistics)
	return root
}
