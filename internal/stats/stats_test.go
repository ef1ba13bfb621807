package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
	assert.True(t, math.IsNaN(Mean(nil)))
}

func TestStdevPopulation(t *testing.T) {
	// population stdev of {2,4,4,4,5,5,7,9} is exactly 2
	got := Stdev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 2.0, got, 1e-12)
	assert.Equal(t, 0.0, Stdev([]float64{5}))
}

func TestPercentile(t *testing.T) {
	vals := []float64{1, 2, 3, 4}

	// n*p-0.5 lands on an integer index: exact element.
	assert.Equal(t, 3.0, Percentile(vals, 0.625))

	// median of an even count interpolates the two middle elements
	assert.Equal(t, 2.5, Median(vals))
	assert.Equal(t, 3.0, Median([]float64{1, 3, 5}))

	// quartiles interpolate
	assert.InDelta(t, 1.5, Percentile(vals, 0.25), 1e-12)
	assert.InDelta(t, 3.5, Percentile(vals, 0.75), 1e-12)

	// degenerate sizes
	assert.Equal(t, 7.0, Percentile([]float64{7}, 0.25))
	assert.Equal(t, 4.0, Percentile(vals, 1))
	assert.True(t, math.IsNaN(Percentile(nil, 0.5)))
}

func TestGini(t *testing.T) {
	assert.Equal(t, 0.0, Gini([]float64{5, 5, 5, 5}))
	assert.Equal(t, 0.0, Gini([]float64{0, 0, 0}))

	// one holder of everything among n approaches (n-1)/n
	assert.InDelta(t, 0.75, Gini([]float64{0, 0, 0, 100}), 1e-12)

	g := Gini([]float64{1, 2, 3, 4})
	assert.Greater(t, g, 0.0)
	assert.Less(t, g, 1.0)
	assert.InDelta(t, 0.25, g, 1e-12)
}
