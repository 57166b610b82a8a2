package fetcher

import "context"

// Provider is the contract every per-market fundamentals source implements.
// A Provider is called concurrently from the screening worker pool and must
// be safe for concurrent use.
type Provider interface {
	// FetchFundamentals retrieves the latest fundamentals snapshot for ticker.
	// Failures should be returned as *FetchError so callers can tell network,
	// rate limit and schema problems apart.
	FetchFundamentals(ctx context.Context, ticker string) (*Fundamentals, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, ticker string) (*Fundamentals, error)

// FetchFundamentals implements Provider.
func (f ProviderFunc) FetchFundamentals(ctx context.Context, ticker string) (*Fundamentals, error) {
	return f(ctx, ticker)
}
