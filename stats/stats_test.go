// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package stats_test

import (
	"math"
	"testing"

	"github.com/featurebasedb/empstats/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		d := stats.Describe(nil)
		assert.Equal(t, 0, d.Count)
		assert.True(t, math.IsNaN(d.Mean))
		assert.True(t, math.IsNaN(d.Std))
		assert.True(t, math.IsNaN(d.Max))
	})

	t.Run("Single", func(t *testing.T) {
		d := stats.Describe([]float64{42})
		assert.Equal(t, 1, d.Count)
		assert.Equal(t, 42.0, d.Mean)
		assert.True(t, math.IsNaN(d.Std))
		assert.Equal(t, 42.0, d.Min)
		assert.Equal(t, 42.0, d.P25)
		assert.Equal(t, 42.0, d.P50)
		assert.Equal(t, 42.0, d.P75)
		assert.Equal(t, 42.0, d.Max)
	})

	t.Run("Unsorted", func(t *testing.T) {
		in := []float64{4, 1, 3, 2}
		d := stats.Describe(in)
		assert.Equal(t, []float64{4, 1, 3, 2}, in, "input must not be reordered")
		assert.Equal(t, 4, d.Count)
		assert.Equal(t, 2.5, d.Mean)
		assert.InDelta(t, 1.2909944487358056, d.Std, 1e-12)
		assert.Equal(t, 1.0, d.Min)
		assert.Equal(t, 1.75, d.P25)
		assert.Equal(t, 2.5, d.P50)
		assert.Equal(t, 3.25, d.P75)
		assert.Equal(t, 4.0, d.Max)
	})

	t.Run("Ordered", func(t *testing.T) {
		d := stats.Describe([]float64{55000, 72000, 31000, 120000, 98000, 64000, 72000})
		assert.LessOrEqual(t, d.Min, d.P25)
		assert.LessOrEqual(t, d.P25, d.P50)
		assert.LessOrEqual(t, d.P50, d.P75)
		assert.LessOrEqual(t, d.P75, d.Max)
		assert.Equal(t, 72000.0, d.P50)
	})
}

func TestQuantile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}
	for _, tt := range []struct {
		p   float64
		exp float64
	}{
		{0, 10},
		{0.1, 14},
		{0.25, 20},
		{0.5, 30},
		{0.9, 46},
		{1, 50},
	} {
		assert.InDelta(t, tt.exp, stats.Quantile(sorted, tt.p), 1e-9, "p=%v", tt.p)
	}
	assert.True(t, math.IsNaN(stats.Quantile(nil, 0.5)))
	assert.True(t, math.IsNaN(stats.Quantile(sorted, 1.5)))
}

func TestStdDev(t *testing.T) {
	assert.InDelta(t, 2.138089935299395, stats.StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
	assert.True(t, math.IsNaN(stats.StdDev([]float64{1})))
}

func TestPearson(t *testing.T) {
	t.Run("Perfect", func(t *testing.T) {
		r, ok := stats.Pearson([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})
		require.True(t, ok)
		assert.Equal(t, 1.0, r)

		r, ok = stats.Pearson([]float64{1, 2, 3, 4}, []float64{8, 6, 4, 2})
		require.True(t, ok)
		assert.Equal(t, -1.0, r)
	})

	t.Run("Partial", func(t *testing.T) {
		r, ok := stats.Pearson([]float64{1, 2, 3, 4, 5}, []float64{2, 1, 4, 3, 5})
		require.True(t, ok)
		assert.InDelta(t, 0.8, r, 1e-12)
	})

	t.Run("Degenerate", func(t *testing.T) {
		_, ok := stats.Pearson([]float64{1}, []float64{2})
		assert.False(t, ok, "single pair")

		_, ok = stats.Pearson([]float64{3, 3, 3}, []float64{1, 2, 3})
		assert.False(t, ok, "zero variance")

		_, ok = stats.Pearson([]float64{0.1, 0.1, 0.1}, []float64{0.3, 0.3, 0.3})
		assert.False(t, ok, "zero variance, inexact mean")

		_, ok = stats.Pearson([]float64{1, 2}, []float64{1, 2, 3})
		assert.False(t, ok, "length mismatch")
	})
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.1235, stats.Round(0.123456, 4))
	assert.Equal(t, -0.9876, stats.Round(-0.98764, 4))
	// Ties go to the even neighbour.
	assert.Equal(t, 2.0, stats.Round(2.5, 0))
	assert.Equal(t, 4.0, stats.Round(3.5, 0))
	assert.Equal(t, 0.12, stats.Round(0.125, 2))
	assert.Equal(t, 0.38, stats.Round(0.375, 2))
	assert.Equal(t, -0.12, stats.Round(-0.125, 2))
	assert.Equal(t, 1.0, stats.Round(0.99999, 4))
	assert.True(t, math.IsNaN(stats.Round(math.NaN(), 4)))
}
