package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"alphafinder/internal/fetcher"
	"alphafinder/internal/market"
)

// MockProvider is a scripted fetcher.Provider for testing.
// Tickers with no fixture, error or panic return a not_found FetchError.
type MockProvider struct {
	mu       sync.Mutex
	fixtures map[string]*fetcher.Fundamentals
	errs     map[string]error
	panics   map[string]any
	delays   map[string]time.Duration
	calls    []string

	// Gauge, when set, tracks concurrent FetchFundamentals calls.
	Gauge *Gauge
}

// NewMockProvider creates an empty MockProvider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		fixtures: make(map[string]*fetcher.Fundamentals),
		errs:     make(map[string]error),
		panics:   make(map[string]any),
		delays:   make(map[string]time.Duration),
	}
}

// With registers fundamentals for ticker.
func (m *MockProvider) With(ticker, name string, metrics map[fetcher.Metric]float64) *MockProvider {
	f := fetcher.NewFundamentals(name)
	for k, v := range metrics {
		f.Set(k, v)
	}
	m.mu.Lock()
	m.fixtures[ticker] = f
	m.mu.Unlock()
	return m
}

// Fail makes ticker return err.
func (m *MockProvider) Fail(ticker string, err error) *MockProvider {
	m.mu.Lock()
	m.errs[ticker] = err
	m.mu.Unlock()
	return m
}

// Panic makes ticker panic with v.
func (m *MockProvider) Panic(ticker string, v any) *MockProvider {
	m.mu.Lock()
	m.panics[ticker] = v
	m.mu.Unlock()
	return m
}

// Delay makes ticker wait d (or until ctx is done) before answering.
func (m *MockProvider) Delay(ticker string, d time.Duration) *MockProvider {
	m.mu.Lock()
	m.delays[ticker] = d
	m.mu.Unlock()
	return m
}

// FetchFundamentals implements fetcher.Provider.
func (m *MockProvider) FetchFundamentals(ctx context.Context, ticker string) (*fetcher.Fundamentals, error) {
	if m.Gauge != nil {
		m.Gauge.Enter()
		defer m.Gauge.Leave()
	}

	m.mu.Lock()
	m.calls = append(m.calls, ticker)
	f, hasFixture := m.fixtures[ticker]
	err, hasErr := m.errs[ticker]
	p, hasPanic := m.panics[ticker]
	d := m.delays[ticker]
	m.mu.Unlock()

	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, fetcher.ClassifyTransportError(ctx.Err())
		}
	}

	switch {
	case hasPanic:
		panic(p)
	case hasErr:
		return nil, err
	case hasFixture:
		return f, nil
	default:
		return nil, fetcher.NewNotFoundError(ticker)
	}
}

// Calls returns the tickers requested so far, in call order.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockSource is a fixed universe.Source.
type MockSource struct {
	Tickers map[market.Market][]string
	Err     error
}

// List implements universe.Source.
func (s *MockSource) List(ctx context.Context, m market.Market) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	ids, ok := s.Tickers[m]
	if !ok {
		return nil, errors.New("no tickers for market " + m.String())
	}
	return append([]string(nil), ids...), nil
}

// Gauge records the high-water mark of concurrent callers.
type Gauge struct {
	current atomic.Int64
	max     atomic.Int64
}

// Enter marks one caller as in flight.
func (g *Gauge) Enter() {
	n := g.current.Add(1)
	for {
		m := g.max.Load()
		if n <= m || g.max.CompareAndSwap(m, n) {
			return
		}
	}
}

// Leave marks one caller as finished.
func (g *Gauge) Leave() {
	g.current.Add(-1)
}

// Max returns the highest concurrency observed.
func (g *Gauge) Max() int {
	return int(g.max.Load())
}
