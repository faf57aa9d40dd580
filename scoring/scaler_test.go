package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitScaler(t *testing.T) {
	samples := [][]float64{
		{1.0, 10.0, 5.0},
		{3.0, 10.0, 7.0},
	}

	s := fitScaler(samples, 3)
	require.Len(t, s.mean, 3)
	require.Len(t, s.scale, 3)

	assert.InDelta(t, 2.0, s.mean[0], 1e-9)
	assert.InDelta(t, 10.0, s.mean[1], 1e-9)
	assert.InDelta(t, 6.0, s.mean[2], 1e-9)

	assert.InDelta(t, 1.0, s.scale[0], 1e-9)
	// Zero-variance dimension gets scale 1 so transforms stay finite.
	assert.InDelta(t, 1.0, s.scale[1], 1e-9)
	assert.InDelta(t, 1.0, s.scale[2], 1e-9)
}

func TestScalerTransformCentersAndScales(t *testing.T) {
	samples := [][]float64{
		{0.0, 1.0},
		{2.0, 1.0},
		{4.0, 1.0},
		{6.0, 1.0},
	}

	s := fitScaler(samples, 2)
	scaled := s.transformAll(samples)

	for d := 0; d < 2; d++ {
		mean := 0.0
		for _, row := range scaled {
			mean += row[d]
		}
		mean /= float64(len(scaled))
		assert.InDelta(t, 0.0, mean, 1e-9, "dimension %d", d)
	}

	// Non-degenerate dimension has unit variance after scaling.
	variance := 0.0
	for _, row := range scaled {
		variance += row[0] * row[0]
	}
	variance /= float64(len(scaled))
	assert.InDelta(t, 1.0, variance, 1e-9)

	for _, row := range scaled {
		assert.False(t, math.IsNaN(row[1]))
		assert.InDelta(t, 0.0, row[1], 1e-9)
	}
}

func TestFitScalerEmpty(t *testing.T) {
	s := fitScaler(nil, 4)
	out := s.transform([]float64{1, 2, 3, 4})
	assert.Equal(t, []float64{1, 2, 3, 4}, out)
}
