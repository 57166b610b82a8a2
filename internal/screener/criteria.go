package screener

import (
	"fmt"

	"alphafinder/internal/fetcher"
)

// Criteria holds the configured thresholds. A nil threshold is inert.
type Criteria struct {
	PEMax            *float64 `json:"pe_max,omitempty"`
	ROEMin           *float64 `json:"roe_min,omitempty"`
	DividendYieldMin *float64 `json:"dividend_yield_min,omitempty"`
	RevenueGrowthMin *float64 `json:"revenue_growth_min,omitempty"`
}

// Threshold is a convenience for building Criteria literals.
func Threshold(v float64) *float64 {
	return &v
}

// Policy decides what happens to an instrument for which no metric could be
// evaluated.
type Policy string

const (
	// PolicyStrict rejects instruments with zero evaluated metrics.
	PolicyStrict Policy = "strict"
	// PolicyInclusive admits them: a vacuous pass.
	PolicyInclusive Policy = "inclusive"
)

// ParsePolicy validates a policy name; "" selects PolicyStrict.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyInclusive:
		return PolicyInclusive, nil
	default:
		return "", fmt.Errorf("unknown filter policy %q (use %s or %s)", s, PolicyStrict, PolicyInclusive)
	}
}

// Comparison is the fixed direction a metric is tested in.
type Comparison int

const (
	AtMost Comparison = iota
	AtLeast
)

// Check ties a metric to its threshold and comparison direction.
type Check struct {
	Metric     fetcher.Metric
	Comparison Comparison
	threshold  func(Criteria) *float64
}

func (c Check) passes(v, t float64) bool {
	if c.Comparison == AtMost {
		return v <= t
	}
	return v >= t
}

// Threshold returns the configured threshold for the check, if any.
func (c Check) Threshold(cr Criteria) (float64, bool) {
	t := c.threshold(cr)
	if t == nil {
		return 0, false
	}
	return *t, true
}

// Checks lists the recognized filters in evaluation order.
var Checks = []Check{
	{fetcher.MetricPE, AtMost, func(c Criteria) *float64 { return c.PEMax }},
	{fetcher.MetricROE, AtLeast, func(c Criteria) *float64 { return c.ROEMin }},
	{fetcher.MetricDividendYield, AtLeast, func(c Criteria) *float64 { return c.DividendYieldMin }},
	{fetcher.MetricRevenueGrowth, AtLeast, func(c Criteria) *float64 { return c.RevenueGrowthMin }},
}

// Evaluate applies every check whose threshold and value are both present.
// It returns how many checks were evaluated and whether all of them passed.
// Evaluation stops at the first failing check.
func Evaluate(f *fetcher.Fundamentals, c Criteria) (evaluated int, ok bool) {
	for _, chk := range Checks {
		t, hasThreshold := chk.Threshold(c)
		if !hasThreshold {
			continue
		}
		v, hasValue := f.Value(chk.Metric)
		if !hasValue {
			continue
		}
		evaluated++
		if !chk.passes(v, t) {
			return evaluated, false
		}
	}
	return evaluated, true
}

// Passes reports whether f qualifies under c and p.
func Passes(f *fetcher.Fundamentals, c Criteria, p Policy) bool {
	evaluated, ok := Evaluate(f, c)
	if !ok {
		return false
	}
	if p == PolicyInclusive {
		return true
	}
	return evaluated > 0
}

// Active reports whether any threshold is configured.
func (c Criteria) Active() bool {
	for _, chk := range Checks {
		if _, ok := chk.Threshold(c); ok {
			return true
		}
	}
	return false
}
