// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package stats implements the descriptive statistics used by the query
// functions: mean, sample standard deviation, linearly interpolated
// quantiles and Pearson correlation.
//
// Results which can't be computed from the input (the mean of nothing, the
// standard deviation of a single value) are returned as NaN.
package stats

import (
	"math"
	"sort"
)

// Description is the fixed statistic set computed over one column.
type Description struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	P25   float64
	P50   float64
	P75   float64
	Max   float64
}

// Describe computes the Description of values. values is not modified.
func Describe(values []float64) Description {
	d := Description{
		Count: len(values),
		Mean:  math.NaN(),
		Std:   math.NaN(),
		Min:   math.NaN(),
		P25:   math.NaN(),
		P50:   math.NaN(),
		P75:   math.NaN(),
		Max:   math.NaN(),
	}
	if len(values) == 0 {
		return d
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	d.Mean = Mean(sorted)
	d.Std = StdDev(sorted)
	d.Min = sorted[0]
	d.P25 = Quantile(sorted, 0.25)
	d.P50 = Quantile(sorted, 0.50)
	d.P75 = Quantile(sorted, 0.75)
	d.Max = sorted[len(sorted)-1]
	return d
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (divisor n-1) of values.
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// Quantile returns the p-th quantile (0 <= p <= 1) of sorted, interpolating
// linearly between the two closest ranks. sorted must be in ascending order.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 || p < 0 || p > 1 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i >= n-1 {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Pearson returns the Pearson correlation coefficient of the paired samples
// xs and ys. ok is false when there are fewer than two pairs, the slices
// differ in length, or either sample has zero variance.
func Pearson(xs, ys []float64) (r float64, ok bool) {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return math.NaN(), false
	}
	if constant(xs) || constant(ys) {
		return math.NaN(), false
	}

	mx, my := Mean(xs), Mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN(), false
	}

	r = sxy / math.Sqrt(sxx*syy)
	// float error can push |r| a hair past 1
	return math.Max(-1, math.Min(1, r)), true
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// Round rounds x to the given number of decimal places. The scaled value is
// rounded half to even. NaN and infinities are returned unchanged.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(x*scale) / scale
}
