package fetcher

import "math"

// Metric names a single fundamentals figure.
type Metric string

const (
	MetricPE            Metric = "pe"
	MetricForwardPE     Metric = "forward_pe"
	MetricPB            Metric = "pb"
	MetricROE           Metric = "roe"
	MetricDividendYield Metric = "dividend_yield"
	MetricRevenueGrowth Metric = "revenue_growth"
	MetricMarketCap     Metric = "market_cap"
)

// UnknownName is used when a provider cannot resolve an instrument's name.
const UnknownName = "N/A"

// Fundamentals is one instrument's snapshot as returned by a Provider.
// A metric missing from Metrics is unknown, which is different from zero.
type Fundamentals struct {
	Name    string
	Metrics map[Metric]float64
}

// NewFundamentals returns an empty record for the named instrument.
func NewFundamentals(name string) *Fundamentals {
	if name == "" {
		name = UnknownName
	}
	return &Fundamentals{
		Name:    name,
		Metrics: make(map[Metric]float64),
	}
}

// Set records a metric value. NaN and infinities are treated as unreported.
func (f *Fundamentals) Set(m Metric, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if f.Metrics == nil {
		f.Metrics = make(map[Metric]float64)
	}
	f.Metrics[m] = v
}

// Value returns the metric and whether it was reported.
func (f *Fundamentals) Value(m Metric) (float64, bool) {
	if f == nil || f.Metrics == nil {
		return 0, false
	}
	v, ok := f.Metrics[m]
	return v, ok
}
