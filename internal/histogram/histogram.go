// Package histogram implements a fixed-bin frequency accumulator.
package histogram

import (
	"fmt"
	"io"
	"math"
	"strconv"
)

// Histogram counts values into Bins uniform bins covering the half-open range
// [min, min+Bins*width). A value on an internal bin boundary belongs to the
// upper bin; values below min or at/above the upper bound go to the overflow
// counters instead of being dropped.
type Histogram struct {
	min    float64
	width  float64
	counts []int

	below int
	above int

	count int
	sum   float64
	sumSq float64
}

// New builds a histogram with bins bins spanning [min, max).
func New(bins int, min, max float64) (*Histogram, error) {
	if bins <= 0 {
		return nil, fmt.Errorf("histogram bins must be > 0, got %d", bins)
	}
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil, fmt.Errorf("histogram bounds must be finite, got min=%g max=%g", min, max)
	}
	if max <= min {
		return nil, fmt.Errorf("histogram max must be > min, got min=%g max=%g", min, max)
	}
	return &Histogram{
		min:    min,
		width:  (max - min) / float64(bins),
		counts: make([]int, bins),
	}, nil
}

// MustNew is New for bounds known to be valid.
func MustNew(bins int, min, max float64) *Histogram {
	h, err := New(bins, min, max)
	if err != nil {
		panic(err)
	}
	return h
}

// Add classifies x into its bin or an overflow counter.
func (h *Histogram) Add(x float64) {
	h.count++
	h.sum += x
	h.sumSq += x * x

	idx := h.BinIndex(x)
	switch {
	case idx < 0:
		h.below++
	case idx >= len(h.counts):
		h.above++
	default:
		h.counts[idx]++
	}
}

// BinIndex returns floor((x-min)/width). The result is outside [0, Bins) for
// out-of-range values.
func (h *Histogram) BinIndex(x float64) int {
	if math.IsNaN(x) {
		return len(h.counts)
	}
	pos := (x - h.min) / h.width
	if pos < 0 {
		return -1
	}
	if pos >= float64(len(h.counts)) {
		return len(h.counts)
	}
	return int(math.Floor(pos))
}

func (h *Histogram) Bins() int         { return len(h.counts) }
func (h *Histogram) Min() float64      { return h.min }
func (h *Histogram) Max() float64      { return h.min + h.width*float64(len(h.counts)) }
func (h *Histogram) BinWidth() float64 { return h.width }
func (h *Histogram) Count() int        { return h.count }
func (h *Histogram) Below() int        { return h.below }
func (h *Histogram) Above() int        { return h.above }

// BinCount returns the raw count in bin i, 0 for an invalid index.
func (h *Histogram) BinCount(i int) int {
	if i < 0 || i >= len(h.counts) {
		return 0
	}
	return h.counts[i]
}

// BinStart returns the lower bound of bin i.
func (h *Histogram) BinStart(i int) float64 {
	return h.min + float64(i)*h.width
}

// Freq returns BinCount(i) normalized by the total number of insertions,
// overflow included. It is 0 when nothing has been added.
func (h *Histogram) Freq(i int) float64 {
	if h.count == 0 {
		return 0
	}
	return float64(h.BinCount(i)) / float64(h.count)
}

// Mean is the exact sample mean of every inserted value, 0 when empty.
func (h *Histogram) Mean() float64 {
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

// Variance is the unbiased sample variance, 0 with fewer than two values.
func (h *Histogram) Variance() float64 {
	if h.count < 2 {
		return 0
	}
	n := float64(h.count)
	v := (h.sumSq - h.sum*h.sum/n) / (n - 1)
	if v < 0 {
		return 0
	}
	return v
}

// Reset clears every counter but keeps the binning.
func (h *Histogram) Reset() {
	for i := range h.counts {
		h.counts[i] = 0
	}
	h.below, h.above = 0, 0
	h.count = 0
	h.sum, h.sumSq = 0, 0
}

// Emit writes a tab separated table of bin start, bin end and normalized
// frequency, followed by the overflow rows.
func (h *Histogram) Emit(w io.Writer) error {
	for i := range h.counts {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n",
			formatFloat(h.BinStart(i)),
			formatFloat(h.BinStart(i+1)),
			formatFloat(h.Freq(i)),
		); err != nil {
			return err
		}
	}
	if h.count == 0 {
		_, err := fmt.Fprintf(w, "<%s\t0\n>=%s\t0\n", formatFloat(h.min), formatFloat(h.Max()))
		return err
	}
	_, err := fmt.Fprintf(w, "<%s\t%s\n>=%s\t%s\n",
		formatFloat(h.min), formatFloat(float64(h.below)/float64(h.count)),
		formatFloat(h.Max()), formatFloat(float64(h.above)/float64(h.count)),
	)
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
