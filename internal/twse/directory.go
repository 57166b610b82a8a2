package twse

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Directory is the TW universe and name source. Each listing pulls the live
// ISIN registry; when the pages cannot be read it keeps serving the last
// live registry, or the static fallback before any live pull succeeded.
type Directory struct {
	live     *ISIN
	fallback *Registry
	logger   zerolog.Logger

	current atomic.Pointer[Registry]
}

// NewDirectory combines a live lister with a static fallback. A nil live
// lister serves the fallback only.
func NewDirectory(live *ISIN, fallback *Registry, logger zerolog.Logger) *Directory {
	return &Directory{
		live:     live,
		fallback: fallback,
		logger:   logger,
	}
}

// Tickers lists the common stocks on TWSE and TPEx, sorted by code.
func (d *Directory) Tickers(ctx context.Context) ([]string, error) {
	if d.live != nil {
		r, err := d.live.Registry(ctx)
		if err == nil {
			d.current.Store(r)
			d.logger.Debug().Int("codes", r.Len()).Msg("TW registry loaded from ISIN pages")
			return r.Tickers(ctx)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		d.logger.Warn().Err(err).Int("codes", d.registry().Len()).Msg("ISIN pages unavailable, using cached TW registry")
	}
	return d.registry().Tickers(ctx)
}

// Name returns the short name for code, or "" when no registry knows it.
func (d *Directory) Name(code string) string {
	if n := d.registry().Name(code); n != "" {
		return n
	}
	return d.fallback.Name(code)
}

// Len is the number of rows in the registry currently served.
func (d *Directory) Len() int {
	return d.registry().Len()
}

func (d *Directory) registry() *Registry {
	if r := d.current.Load(); r != nil {
		return r
	}
	return d.fallback
}
