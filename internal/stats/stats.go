// Package stats provides the summary statistics used by the telemetry
// reduction: mean, population standard deviation, interpolated percentiles,
// and the Gini coefficient over terminal agent wealth.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, or NaN for an empty slice.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// Stdev returns the population standard deviation, or NaN for an empty slice.
func Stdev(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	mean := Mean(vals)
	ss := 0.0
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)))
}

// Percentile returns the p-th percentile (p in [0,1]) using midpoint
// interpolation: index n*p-0.5, interpolating between neighbors when the
// index is fractional.
func Percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 || p < 0 {
		return math.NaN()
	}
	if p > 1 {
		p = 1
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	if p == 1 {
		return sorted[len(sorted)-1]
	}
	i := float64(len(sorted))*p - 0.5
	intPart := math.Trunc(i)
	if i == intPart && intPart >= 0 {
		return sorted[int(intPart)]
	}
	fract := i - intPart
	lo := int(intPart)
	if lo < 0 {
		lo = 0
	}
	hi := lo + 1
	if hi > len(sorted)-1 {
		hi = len(sorted) - 1
	}
	return (1-fract)*sorted[lo] + fract*sorted[hi]
}

// Median returns the 50th percentile.
func Median(vals []float64) float64 {
	return Percentile(vals, 0.5)
}

// Gini returns the Gini coefficient of the given holdings. It returns 0 when
// the total is zero so that an inactive population reads as perfectly equal.
func Gini(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	var top, total float64
	for i, v := range sorted {
		top += (2*float64(i+1) - float64(n) - 1) * v
		total += v
	}
	if total == 0 {
		return 0
	}
	return top / (total * float64(n))
}
