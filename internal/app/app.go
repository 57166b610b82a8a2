// Package app wires configuration into the data sources and the screening
// engine.
package app

import (
	"fmt"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"alphafinder/internal/config"
	"alphafinder/internal/fetcher"
	"alphafinder/internal/finmind"
	"alphafinder/internal/market"
	"alphafinder/internal/ratelimit"
	"alphafinder/internal/screener"
	"alphafinder/internal/twse"
	"alphafinder/internal/universe"
	"alphafinder/internal/wikipedia"
	"alphafinder/internal/yahoo"
)

// App holds the long-lived collaborators of one process.
type App struct {
	cfg       *config.Config
	logger    zerolog.Logger
	limiter   *ratelimit.Limiter
	directory *twse.Directory
	universe  *universe.Sources
	providers map[market.Market]fetcher.Provider
}

// New builds every adapter described by cfg.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	fallback, err := twse.Load(cfg.TWSE.RegistryPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load TW registry: %w", err)
	}

	limiter := ratelimit.New(map[ratelimit.API]float64{
		ratelimit.APIYahoo:     cfg.Yahoo.RatePerSecond,
		ratelimit.APIFinMind:   cfg.FinMind.RatePerSecond,
		ratelimit.APIWikipedia: cfg.Wikipedia.RatePerSecond,
		ratelimit.APITWSE:      cfg.TWSE.RatePerSecond,
	})

	client := func(name, baseURL, accept string) *resty.Client {
		return fetcher.NewHTTPClient(fetcher.ClientOptions{
			BaseURL:    baseURL,
			Timeout:    cfg.HTTP.Timeout,
			UserAgent:  cfg.HTTP.UserAgent,
			Accept:     accept,
			RetryCount: cfg.HTTP.RetryCount,
			Logger:     logger.With().Str("api", name).Logger(),
		})
	}

	sp500 := wikipedia.NewSP500(client("wikipedia", "", "text/html"), limiter, cfg.Wikipedia.SP500URL)

	var isin *twse.ISIN
	if cfg.TWSE.ISINURL != "" {
		isin = twse.NewISIN(client("twse", "", "text/html"), limiter, cfg.TWSE.ISINURL)
	}
	directory := twse.NewDirectory(isin, fallback, logger.With().Str("component", "twse").Logger())

	a := &App{
		cfg:       cfg,
		logger:    logger,
		limiter:   limiter,
		directory: directory,
		universe: universe.New(map[market.Market]universe.Lister{
			market.US: sp500,
			market.TW: directory,
		}),
		providers: map[market.Market]fetcher.Provider{
			market.US: yahoo.NewProvider(client("yahoo", cfg.Yahoo.BaseURL, ""), limiter, cfg.Yahoo.CookieURL),
			market.TW: finmind.NewProvider(client("finmind", cfg.FinMind.BaseURL, ""), limiter, directory, cfg.FinMind.Token),
		},
	}

	logger.Debug().
		Bool("tw_isin_live", isin != nil).
		Int("tw_fallback_codes", fallback.Len()).
		Bool("finmind_token", cfg.FinMind.Token != "").
		Msg("Application wired")

	return a, nil
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Universe returns the per-market candidate source.
func (a *App) Universe() universe.Source {
	return a.universe
}

// Provider returns the fundamentals provider for m.
func (a *App) Provider(m market.Market) (fetcher.Provider, error) {
	p, ok := a.providers[m]
	if !ok {
		return nil, fmt.Errorf("%w: %s", market.ErrUnsupportedMarket, m)
	}
	return p, nil
}

// Engine returns a screening engine configured from the loaded config.
// opts are applied after the config-derived options and win over them.
func (a *App) Engine(opts ...screener.Option) *screener.Engine {
	base := []screener.Option{
		screener.WithMaxConcurrency(a.cfg.Screen.MaxConcurrency),
		screener.WithFetchTimeout(a.cfg.Screen.FetchTimeout),
		screener.WithPolicy(a.cfg.Policy()),
		screener.WithLogger(a.logger),
	}
	return screener.New(a.universe, a.providers, append(base, opts...)...)
}
