package sim

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsPrefix = "popstat_"

// Metrics counts driver activity. It satisfies stats.Observer so the
// collection reports each statistic it feeds.
type Metrics struct {
	collections  *prometheus.CounterVec
	treesSampled prometheus.Counter
	generations  prometheus.Counter
	published    prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		collections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricsPrefix + "collections_total",
				Help: "Number of times a statistic was fed a snapshot or a tree",
			},
			[]string{"statistic"},
		),
		treesSampled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricsPrefix + "trees_sampled_total",
			Help: "Number of sample genealogies built",
		}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricsPrefix + "generations_total",
			Help: "Number of generations simulated",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricsPrefix + "trees_published_total",
			Help: "Number of trees pushed to tree listeners",
		}),
	}
}

// Register adds every metric to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	return reg.Register(m)
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.collections.Describe(ch)
	m.treesSampled.Describe(ch)
	m.generations.Describe(ch)
	m.published.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.collections.Collect(ch)
	m.treesSampled.Collect(ch)
	m.generations.Collect(ch)
	m.published.Collect(ch)
}

func (m *Metrics) Collected(typeTag string) {
	if m == nil {
		return
	}
	m.collections.WithLabelValues(typeTag).Inc()
}

func (m *Metrics) TreeSampled() {
	if m == nil {
		return
	}
	m.treesSampled.Inc()
}

func (m *Metrics) TreePublished() {
	if m == nil {
		return
	}
	m.published.Inc()
}

func (m *Metrics) Generation() {
	if m == nil {
		return
	}
	m.generations.Inc()
}
