package screener

import (
	"alphafinder/internal/fetcher"
	"alphafinder/internal/market"
)

// columns lists, per market, the metrics carried into result rows and the
// order they are shown in. Ticker and name always lead.
var columns = map[market.Market][]fetcher.Metric{
	market.TW: {
		fetcher.MetricPE,
		fetcher.MetricPB,
		fetcher.MetricROE,
		fetcher.MetricDividendYield,
		fetcher.MetricRevenueGrowth,
	},
	market.US: {
		fetcher.MetricPE,
		fetcher.MetricForwardPE,
		fetcher.MetricPB,
		fetcher.MetricROE,
		fetcher.MetricDividendYield,
		fetcher.MetricRevenueGrowth,
		fetcher.MetricMarketCap,
	},
}

// Columns returns the output metrics for m.
func Columns(m market.Market) []fetcher.Metric {
	return append([]fetcher.Metric(nil), columns[m]...)
}

func project(ticker string, f *fetcher.Fundamentals, cols []fetcher.Metric) *Row {
	row := &Row{
		Ticker:  ticker,
		Name:    f.Name,
		Metrics: make(map[fetcher.Metric]float64, len(cols)),
	}
	for _, c := range cols {
		if v, ok := f.Value(c); ok {
			row.Metrics[c] = v
		}
	}
	return row
}
