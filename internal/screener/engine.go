package screener

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"alphafinder/internal/fetcher"
	"alphafinder/internal/market"
	"alphafinder/internal/universe"
)

// DefaultMaxConcurrency bounds in-flight fetches per run.
const DefaultMaxConcurrency = 8

// Engine screens a market's universe against a Criteria set.
type Engine struct {
	universe  universe.Source
	providers map[market.Market]fetcher.Provider

	maxConcurrency int
	fetchTimeout   time.Duration
	policy         Policy
	progress       ProgressSink
	logger         zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxConcurrency sets the worker pool size. Values below 1 are ignored.
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.maxConcurrency = n
		}
	}
}

// WithFetchTimeout bounds each provider call. Zero means no deadline beyond
// the run context.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.fetchTimeout = d
		}
	}
}

// WithPolicy selects how instruments with no evaluable metric are treated.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		if p != "" {
			e.policy = p
		}
	}
}

// WithProgress installs a progress observer.
func WithProgress(sink ProgressSink) Option {
	return func(e *Engine) {
		e.progress = sink
	}
}

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine resolving ids from src and fundamentals from the
// per-market providers.
func New(src universe.Source, providers map[market.Market]fetcher.Provider, opts ...Option) *Engine {
	e := &Engine{
		universe:       src,
		providers:      make(map[market.Market]fetcher.Provider, len(providers)),
		maxConcurrency: DefaultMaxConcurrency,
		policy:         PolicyStrict,
		logger:         zerolog.Nop(),
	}
	for m, p := range providers {
		e.providers[m] = p
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Screen fetches fundamentals for every id in the market's universe, keeps
// those passing criteria and returns them sorted by ticker.
//
// Only an unsupported market or a universe failure is returned as an error.
// Per-instrument fetch failures are collected in Result.Failures and
// Result.Errors; the run always waits for every dispatched task.
func (e *Engine) Screen(ctx context.Context, m market.Market, criteria Criteria) (*Result, error) {
	provider, ok := e.providers[m]
	if !ok {
		return nil, fmt.Errorf("%w: %s", market.ErrUnsupportedMarket, m)
	}

	ids, err := e.universe.List(ctx, m)
	if err != nil {
		return nil, err
	}

	log := e.logger.With().Str("market", m.String()).Logger()
	log.Info().
		Int("universe", len(ids)).
		Int("max_concurrency", e.maxConcurrency).
		Str("policy", string(e.policy)).
		Msg("Screening started")
	started := time.Now()

	counter := NewCounter(len(ids))
	e.report(counter.Snapshot())

	res := &Result{
		Market:   m,
		Criteria: criteria,
		Policy:   e.policy,
		Columns:  Columns(m),
		Total:    len(ids),
	}

	outcomes := make(chan Outcome, len(ids))
	workers := pool.New().WithMaxGoroutines(e.maxConcurrency)

	// Dispatch in universe order; Go blocks while the pool is saturated.
	go func() {
		for _, id := range ids {
			workers.Go(func() {
				outcomes <- e.screenOne(ctx, provider, id, criteria, res.Columns)
			})
		}
		workers.Wait()
		close(outcomes)
	}()

	for o := range outcomes {
		e.report(counter.Done())

		switch o.Kind {
		case Passed:
			res.Rows = append(res.Rows, *o.Row)
		case Rejected:
			res.Rejected++
		case FetchFailed:
			log.Debug().Str("ticker", o.Ticker).Err(o.Err).Msg("Fetch failed")
			res.Failures = append(res.Failures, Failure{Ticker: o.Ticker, Err: o.Err})
		}
	}

	sortRows(res.Rows)
	sortFailures(res.Failures)
	res.Errors = Summarize(res.Failures)

	event := log.Info()
	if res.Errors.Count > 0 {
		event = log.Warn()
	}
	event.
		Int("total", res.Total).
		Int("passed", len(res.Rows)).
		Int("rejected", res.Rejected).
		Int("failed", res.Errors.Count).
		Dur("elapsed", time.Since(started)).
		Msg("Screening completed")

	return res, nil
}

// screenOne runs a single fetch+filter task. It never panics and always
// returns exactly one Outcome.
func (e *Engine) screenOne(ctx context.Context, p fetcher.Provider, id string, criteria Criteria, cols []fetcher.Metric) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Kind: FetchFailed, Ticker: id, Err: fmt.Errorf("provider panic: %v", r)}
		}
	}()

	if e.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.fetchTimeout)
		defer cancel()
	}

	f, err := p.FetchFundamentals(ctx, id)
	if err != nil {
		return Outcome{Kind: FetchFailed, Ticker: id, Err: err}
	}
	if f == nil {
		return Outcome{Kind: FetchFailed, Ticker: id, Err: fetcher.NewValidationError("provider returned no data")}
	}

	if !Passes(f, criteria, e.policy) {
		return Outcome{Kind: Rejected, Ticker: id}
	}
	return Outcome{Kind: Passed, Ticker: id, Row: project(id, f, cols)}
}

func (e *Engine) report(p Progress) {
	if e.progress != nil {
		e.progress(p)
	}
}
