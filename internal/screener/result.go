package screener

import (
	"fmt"
	"slices"
	"strings"

	"alphafinder/internal/fetcher"
	"alphafinder/internal/market"
)

// MaxErrorSamples is how many failure messages an ErrorSummary itemizes.
const MaxErrorSamples = 5

// OutcomeKind tags a per-instrument Outcome.
type OutcomeKind int

const (
	Passed OutcomeKind = iota
	Rejected
	FetchFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case Passed:
		return "passed"
	case Rejected:
		return "rejected"
	case FetchFailed:
		return "fetch_failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is produced exactly once per instrument per run.
type Outcome struct {
	Kind   OutcomeKind
	Ticker string
	Row    *Row  // set for Passed
	Err    error // set for FetchFailed
}

// Row is a qualifying instrument projected onto the market's columns.
type Row struct {
	Ticker  string                     `json:"ticker"`
	Name    string                     `json:"name"`
	Metrics map[fetcher.Metric]float64 `json:"metrics"`
}

// Value returns a projected metric and whether it was reported.
func (r Row) Value(m fetcher.Metric) (float64, bool) {
	v, ok := r.Metrics[m]
	return v, ok
}

// Failure records a fetch error for one instrument.
type Failure struct {
	Ticker string
	Err    error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %v", f.Ticker, f.Err)
}

// ErrorSummary is the capped, user-facing digest of fetch failures.
type ErrorSummary struct {
	Count   int      `json:"count"`
	Samples []string `json:"samples,omitempty"`
	Omitted int      `json:"omitted,omitempty"`
}

// Summarize itemizes at most MaxErrorSamples failures. failures should
// already be in presentation order.
func Summarize(failures []Failure) ErrorSummary {
	s := ErrorSummary{Count: len(failures)}
	for i, f := range failures {
		if i == MaxErrorSamples {
			s.Omitted = len(failures) - MaxErrorSamples
			break
		}
		s.Samples = append(s.Samples, f.String())
	}
	return s
}

// Result is the outcome of one screening run.
type Result struct {
	Market   market.Market
	Criteria Criteria
	Policy   Policy
	Columns  []fetcher.Metric
	Rows     []Row     // ascending by ticker
	Failures []Failure // ascending by ticker
	Errors   ErrorSummary
	Total    int
	Rejected int
}

// NoQualifying reports the "nothing passed" outcome, which is not an error.
func (r *Result) NoQualifying() bool {
	return len(r.Rows) == 0
}

// Tickers returns the qualifying tickers in result order.
func (r *Result) Tickers() []string {
	out := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Ticker
	}
	return out
}

func sortRows(rows []Row) {
	slices.SortFunc(rows, func(a, b Row) int {
		return strings.Compare(a.Ticker, b.Ticker)
	})
}

func sortFailures(failures []Failure) {
	slices.SortFunc(failures, func(a, b Failure) int {
		return strings.Compare(a.Ticker, b.Ticker)
	})
}
