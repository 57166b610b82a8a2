package universe

import (
	"context"
	"errors"
	"fmt"

	"alphafinder/internal/market"
)

// ErrUniverseUnavailable marks a failure to resolve the candidate list.
// It is fatal for a screening run.
var ErrUniverseUnavailable = errors.New("universe unavailable")

// Source resolves the ordered candidate ids for a market.
type Source interface {
	List(ctx context.Context, m market.Market) ([]string, error)
}

// Lister produces one market's candidate ids.
type Lister interface {
	Tickers(ctx context.Context) ([]string, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context) ([]string, error)

// Tickers implements Lister.
func (f ListerFunc) Tickers(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// Sources routes each market to its Lister.
type Sources struct {
	listers map[market.Market]Lister
}

// New creates a Source from per-market listers.
func New(listers map[market.Market]Lister) *Sources {
	m := make(map[market.Market]Lister, len(listers))
	for k, v := range listers {
		m[k] = v
	}
	return &Sources{listers: m}
}

// List returns the market's ids in lister order with duplicates and blanks
// removed. Every failure wraps ErrUniverseUnavailable.
func (s *Sources) List(ctx context.Context, m market.Market) ([]string, error) {
	l, ok := s.listers[m]
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrUniverseUnavailable, market.ErrUnsupportedMarket, m)
	}

	ids, err := l.Tickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUniverseUnavailable, m, err)
	}

	return dedupe(ids), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
