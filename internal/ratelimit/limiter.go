package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// API represents the different external APIs we interact with
type API string

const (
	// APIYahoo represents the Yahoo Finance quoteSummary API
	APIYahoo API = "yahoo"
	// APIFinMind represents the FinMind open data API
	APIFinMind API = "finmind"
	// APIWikipedia represents en.wikipedia.org page fetches
	APIWikipedia API = "wikipedia"
	// APITWSE represents the isin.twse.com.tw listing pages
	APITWSE API = "twse"
)

// Limiter manages rate limits for different APIs
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a limiter with one token bucket per API. A rate of zero or
// less, or an API missing from perSecond, is unlimited; New(nil) never blocks.
func New(perSecond map[API]float64) *Limiter {
	l := &Limiter{
		limiters: make(map[API]*rate.Limiter),
	}
	for api, rps := range perSecond {
		l.Set(api, rps)
	}
	return l
}

// Set replaces the rate for a single API.
func (l *Limiter) Set(api API, perSecond float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if perSecond <= 0 {
		delete(l.limiters, api)
		return
	}
	l.limiters[api] = rate.NewLimiter(rate.Limit(perSecond), 1)
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	if l == nil {
		return nil
	}

	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		return ctx.Err()
	}

	return limiter.Wait(ctx)
}
