package market

import (
	"errors"
	"fmt"
	"strings"
)

// Market identifies the equity market a screening run targets.
type Market string

const (
	// US screens S&P 500 constituents.
	US Market = "us"
	// TW screens TWSE and TPEx listed common stocks.
	TW Market = "tw"
)

// ErrUnsupportedMarket is returned for market names we have no adapters for.
var ErrUnsupportedMarket = errors.New("unsupported market")

// All lists the supported markets in display order.
func All() []Market {
	return []Market{US, TW}
}

// Parse converts a user-supplied market name into a Market.
func Parse(s string) (Market, error) {
	m := Market(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedMarket, s)
}

// Label is the upper-case name used in progress and report output.
func (m Market) Label() string {
	return strings.ToUpper(string(m))
}

func (m Market) String() string {
	return string(m)
}
