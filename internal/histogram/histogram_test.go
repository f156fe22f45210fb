package histogram

import (
	"bytes"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidBounds(t *testing.T) {
	cases := []struct {
		name     string
		bins     int
		min, max float64
	}{
		{name: "zero bins", bins: 0, min: 0, max: 1},
		{name: "negative bins", bins: -3, min: 0, max: 1},
		{name: "empty range", bins: 4, min: 2, max: 2},
		{name: "inverted range", bins: 4, min: 3, max: 1},
		{name: "nan max", bins: 4, min: 0, max: math.NaN()},
		{name: "nan min", bins: 4, min: math.NaN(), max: 1},
		{name: "infinite max", bins: 4, min: 0, max: math.Inf(1)},
		{name: "infinite min", bins: 4, min: math.Inf(-1), max: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.bins, tc.min, tc.max)
			require.Error(t, err)
		})
	}
}

func TestCountsAddUpToInsertions(t *testing.T) {
	h := MustNew(10, -2, 3)
	rng := rand.New(rand.NewSource(7))
	const n = 5000
	for i := 0; i < n; i++ {
		h.Add(rng.NormFloat64() * 3)
	}

	total := h.Below() + h.Above()
	for i := 0; i < h.Bins(); i++ {
		total += h.BinCount(i)
	}
	assert.Equal(t, n, total)
	assert.Equal(t, n, h.Count())
	assert.Positive(t, h.Below())
	assert.Positive(t, h.Above())
}

func TestBoundaryValuesGoToUpperBin(t *testing.T) {
	h := MustNew(4, 0, 4)

	assert.Equal(t, 0, h.BinIndex(0))
	assert.Equal(t, 1, h.BinIndex(1))
	assert.Equal(t, 3, h.BinIndex(3))
	assert.Equal(t, 3, h.BinIndex(3.999))
	assert.Equal(t, 4, h.BinIndex(4), "max is exclusive")
	assert.Equal(t, -1, h.BinIndex(-0.001))

	h.Add(1)
	h.Add(4)
	h.Add(-1)
	assert.Equal(t, 1, h.BinCount(1))
	assert.Equal(t, 0, h.BinCount(0))
	assert.Equal(t, 1, h.Above())
	assert.Equal(t, 1, h.Below())
}

func TestMeanAndFreq(t *testing.T) {
	h := MustNew(2, 0, 2)
	assert.Equal(t, 0.0, h.Mean())
	assert.Equal(t, 0.0, h.Freq(0))

	h.Add(0.5)
	h.Add(0.5)
	h.Add(1.5)
	h.Add(9)

	assert.InDelta(t, 11.5/4, h.Mean(), 1e-12)
	assert.InDelta(t, 0.5, h.Freq(0), 1e-12)
	assert.InDelta(t, 0.25, h.Freq(1), 1e-12)
	assert.Equal(t, 0.0, h.Freq(5))
}

func TestVariance(t *testing.T) {
	h := MustNew(5, 0, 5)
	h.Add(2)
	assert.Equal(t, 0.0, h.Variance())
	h.Add(2)
	h.Add(1)
	assert.InDelta(t, 1.0/3.0, h.Variance(), 1e-12)
}

func TestResetKeepsBinning(t *testing.T) {
	h := MustNew(3, 0, 3)
	h.Add(1)
	h.Add(10)
	h.Reset()
	assert.Equal(t, 0, h.Count())
	assert.Equal(t, 0, h.Above())
	assert.Equal(t, 3, h.Bins())
	assert.Equal(t, 3.0, h.Max())
}

func TestEmitIsDeterministic(t *testing.T) {
	h := MustNew(2, 0, 1)
	h.Add(0.25)
	h.Add(0.75)
	h.Add(0.75)
	h.Add(1.5)

	var first, second bytes.Buffer
	require.NoError(t, h.Emit(&first))
	require.NoError(t, h.Emit(&second))
	assert.Equal(t, first.String(), second.String())

	lines := strings.Split(strings.TrimSpace(first.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "0.000000\t0.500000\t0.250000", lines[0])
	assert.Equal(t, "0.500000\t1.000000\t0.500000", lines[1])
	assert.Equal(t, "<0.000000\t0.000000", lines[2])
	assert.Equal(t, ">=1.000000\t0.250000", lines[3])
}
