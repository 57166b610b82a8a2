package screener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphafinder/internal/fetcher"
)

func fundamentals(metrics map[fetcher.Metric]float64) *fetcher.Fundamentals {
	f := fetcher.NewFundamentals("Test Co")
	for k, v := range metrics {
		f.Set(k, v)
	}
	return f
}

func TestPasses(t *testing.T) {
	all := Criteria{
		PEMax:            Threshold(15),
		ROEMin:           Threshold(10),
		DividendYieldMin: Threshold(3),
		RevenueGrowthMin: Threshold(5),
	}

	tests := []struct {
		name      string
		criteria  Criteria
		metrics   map[fetcher.Metric]float64
		strict    bool
		inclusive bool
	}{
		{
			name:      "all metrics pass",
			criteria:  all,
			metrics:   map[fetcher.Metric]float64{fetcher.MetricPE: 12, fetcher.MetricROE: 18, fetcher.MetricDividendYield: 4, fetcher.MetricRevenueGrowth: 9},
			strict:    true,
			inclusive: true,
		},
		{
			name:      "pe equal to max passes",
			criteria:  Criteria{PEMax: Threshold(15)},
			metrics:   map[fetcher.Metric]float64{fetcher.MetricPE: 15},
			strict:    true,
			inclusive: true,
		},
		{
			name:      "roe equal to min passes",
			criteria:  Criteria{ROEMin: Threshold(10)},
			metrics:   map[fetcher.Metric]float64{fetcher.MetricROE: 10},
			strict:    true,
			inclusive: true,
		},
		{
			name:      "dividend yield equal to min passes",
			criteria:  Criteria{DividendYieldMin: Threshold(3)},
			metrics:   map[fetcher.Metric]float64{fetcher.MetricDividendYield: 3},
			strict:    true,
			inclusive: true,
		},
		{
			name:     "dividend yield below min fails",
			criteria: Criteria{DividendYieldMin: Threshold(3)},
			metrics:  map[fetcher.Metric]float64{fetcher.MetricDividendYield: 2.99},
		},
		{
			name:      "revenue growth equal to min passes",
			criteria:  Criteria{RevenueGrowthMin: Threshold(5)},
			metrics:   map[fetcher.Metric]float64{fetcher.MetricRevenueGrowth: 5},
			strict:    true,
			inclusive: true,
		},
		{
			name:      "revenue growth equal to zero min passes",
			criteria:  Criteria{RevenueGrowthMin: Threshold(0)},
			metrics:   map[fetcher.Metric]float64{fetcher.MetricRevenueGrowth: 0},
			strict:    true,
			inclusive: true,
		},
		{
			name:     "revenue growth below min fails",
			criteria: Criteria{RevenueGrowthMin: Threshold(5)},
			metrics:  map[fetcher.Metric]float64{fetcher.MetricRevenueGrowth: 4.99},
		},
		{
			name:     "pe above max fails",
			criteria: Criteria{PEMax: Threshold(15)},
			metrics:  map[fetcher.Metric]float64{fetcher.MetricPE: 15.01},
		},
		{
			name:     "one failing metric rejects",
			criteria: all,
			metrics:  map[fetcher.Metric]float64{fetcher.MetricPE: 12, fetcher.MetricROE: 18, fetcher.MetricDividendYield: 1},
		},
		{
			name:      "missing metric is skipped",
			criteria:  all,
			metrics:   map[fetcher.Metric]float64{fetcher.MetricPE: 12},
			strict:    true,
			inclusive: true,
		},
		{
			name:      "nothing evaluable",
			criteria:  Criteria{PEMax: Threshold(15)},
			metrics:   map[fetcher.Metric]float64{fetcher.MetricROE: 30},
			strict:    false,
			inclusive: true,
		},
		{
			name:      "no thresholds configured",
			criteria:  Criteria{},
			metrics:   map[fetcher.Metric]float64{fetcher.MetricPE: 100},
			strict:    false,
			inclusive: true,
		},
		{
			name:      "negative pe passes pe max",
			criteria:  Criteria{PEMax: Threshold(15)},
			metrics:   map[fetcher.Metric]float64{fetcher.MetricPE: -4},
			strict:    true,
			inclusive: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fundamentals(tt.metrics)
			assert.Equal(t, tt.strict, Passes(f, tt.criteria, PolicyStrict), "strict")
			assert.Equal(t, tt.inclusive, Passes(f, tt.criteria, PolicyInclusive), "inclusive")
		})
	}
}

func TestEvaluate_StopsAtFirstFailure(t *testing.T) {
	f := fundamentals(map[fetcher.Metric]float64{
		fetcher.MetricPE:  30,
		fetcher.MetricROE: 20,
	})

	evaluated, ok := Evaluate(f, Criteria{PEMax: Threshold(15), ROEMin: Threshold(10)})
	assert.False(t, ok)
	assert.Equal(t, 1, evaluated)
}

func TestEvaluate_IgnoresUnfilteredMetrics(t *testing.T) {
	f := fundamentals(map[fetcher.Metric]float64{
		fetcher.MetricPB:        100,
		fetcher.MetricMarketCap: 1,
	})

	evaluated, ok := Evaluate(f, Criteria{PEMax: Threshold(15)})
	assert.True(t, ok)
	assert.Zero(t, evaluated)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)

	p, err = ParsePolicy("inclusive")
	require.NoError(t, err)
	assert.Equal(t, PolicyInclusive, p)

	_, err = ParsePolicy("lenient")
	assert.ErrorContains(t, err, `unknown filter policy "lenient"`)
}

func TestCriteria_Active(t *testing.T) {
	assert.False(t, Criteria{}.Active())
	assert.True(t, Criteria{DividendYieldMin: Threshold(0)}.Active())
}
