// Package report renders screening results for a terminal or for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"alphafinder/internal/fetcher"
	"alphafinder/internal/market"
	"alphafinder/internal/screener"
)

const rule = "======================================================================"

var headers = map[fetcher.Metric]string{
	fetcher.MetricPE:            "PE",
	fetcher.MetricForwardPE:     "FWD PE",
	fetcher.MetricPB:            "PB",
	fetcher.MetricROE:           "ROE %",
	fetcher.MetricDividendYield: "YIELD %",
	fetcher.MetricRevenueGrowth: "REV GROWTH %",
	fetcher.MetricMarketCap:     "MARKET CAP",
}

var criteriaLabels = map[fetcher.Metric]string{
	fetcher.MetricPE:            "PE",
	fetcher.MetricROE:           "ROE",
	fetcher.MetricDividendYield: "Dividend Yield",
	fetcher.MetricRevenueGrowth: "Revenue Growth",
}

// ProgressLine returns a sink that redraws "Screening US... (n/total)" in
// place and ends the line once every task has finished.
func ProgressLine(w io.Writer, m market.Market) screener.ProgressSink {
	return func(p screener.Progress) {
		fmt.Fprintf(w, "\rScreening %s... (%d/%d)", m.Label(), p.Completed, p.Total)
		if p.Completed >= p.Total {
			fmt.Fprintln(w)
		}
	}
}

// CriteriaLine formats the configured thresholds, e.g. "PE <= 15 | ROE >= 15%".
func CriteriaLine(c screener.Criteria) string {
	var parts []string
	for _, chk := range screener.Checks {
		t, ok := chk.Threshold(c)
		if !ok {
			continue
		}
		label := criteriaLabels[chk.Metric]
		if chk.Comparison == screener.AtMost {
			parts = append(parts, fmt.Sprintf("%s <= %s", label, number(t)))
		} else {
			parts = append(parts, fmt.Sprintf("%s >= %s%%", label, number(t)))
		}
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, " | ")
}

// WriteWarnings prints the capped fetch failure digest, if any.
func WriteWarnings(w io.Writer, res *screener.Result) {
	if res.Errors.Count == 0 {
		return
	}
	fmt.Fprintf(w, "\nWarning: %d/%d instruments failed to fetch\n", res.Errors.Count, res.Total)
	for _, s := range res.Errors.Samples {
		fmt.Fprintf(w, "  %s\n", s)
	}
	if res.Errors.Omitted > 0 {
		fmt.Fprintf(w, "  ... and %d more\n", res.Errors.Omitted)
	}
}

// WriteTable renders res as an aligned text table preceded by any fetch
// warnings and the active criteria.
func WriteTable(w io.Writer, res *screener.Result) error {
	WriteWarnings(w, res)

	label := res.Market.Label()
	if res.NoQualifying() {
		_, err := fmt.Fprintf(w, "\nNo qualifying %s instruments.\n", label)
		return err
	}

	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, " %s screening results (%d qualifying)\n", label, len(res.Rows))
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, " Criteria: %s\n", CriteriaLine(res.Criteria))
	fmt.Fprintf(w, "%s\n", rule)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	head := []string{"TICKER", "NAME"}
	for _, c := range res.Columns {
		head = append(head, headers[c])
	}
	fmt.Fprintln(tw, strings.Join(head, "\t")+"\t")

	for _, row := range res.Rows {
		cells := []string{row.Ticker, row.Name}
		for _, c := range res.Columns {
			cells = append(cells, cell(row, c))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	return tw.Flush()
}

type jsonResult struct {
	Market   market.Market         `json:"market"`
	Policy   screener.Policy       `json:"policy"`
	Criteria screener.Criteria     `json:"criteria"`
	Total    int                   `json:"total"`
	Rejected int                   `json:"rejected"`
	Columns  []fetcher.Metric      `json:"columns"`
	Rows     []screener.Row        `json:"rows"`
	Errors   screener.ErrorSummary `json:"errors"`
}

// WriteJSON emits res as a single indented JSON document.
func WriteJSON(w io.Writer, res *screener.Result) error {
	rows := res.Rows
	if rows == nil {
		rows = []screener.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(jsonResult{
		Market:   res.Market,
		Policy:   res.Policy,
		Criteria: res.Criteria,
		Total:    res.Total,
		Rejected: res.Rejected,
		Columns:  res.Columns,
		Rows:     rows,
		Errors:   res.Errors,
	})
}

// WriteFundamentals prints a single instrument's metrics, one per line.
func WriteFundamentals(w io.Writer, ticker string, f *fetcher.Fundamentals, cols []fetcher.Metric) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ticker\t%s\n", ticker)
	fmt.Fprintf(tw, "name\t%s\n", f.Name)
	for _, c := range cols {
		v, ok := f.Value(c)
		s := "-"
		if ok {
			s = format(c, v)
		}
		fmt.Fprintf(tw, "%s\t%s\n", c, s)
	}
	return tw.Flush()
}

func cell(row screener.Row, m fetcher.Metric) string {
	v, ok := row.Value(m)
	if !ok {
		return "-"
	}
	return format(m, v)
}

func format(m fetcher.Metric, v float64) string {
	if m == fetcher.MetricMarketCap {
		return humanize(v)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func humanize(v float64) string {
	switch abs := max(v, -v); {
	case abs >= 1e12:
		return strconv.FormatFloat(v/1e12, 'f', 2, 64) + "T"
	case abs >= 1e9:
		return strconv.FormatFloat(v/1e9, 'f', 2, 64) + "B"
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 2, 64) + "M"
	default:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
