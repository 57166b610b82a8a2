package fetcher

import (
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"
)

const (
	defaultTimeout          = 30 * time.Second
	defaultRetryWaitTime    = 1 * time.Second
	defaultRetryMaxWaitTime = 10 * time.Second
	defaultUserAgent        = "Mozilla/5.0 (AlphaFinder)"
)

// ClientOptions configures the shared resty client used by every adapter.
type ClientOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Accept    string

	// RetryCount is zero by default: a screen makes a single attempt per
	// instrument unless retries are explicitly configured.
	RetryCount int

	Logger zerolog.Logger
}

// NewHTTPClient creates a resty client with optional retry and exponential backoff.
func NewHTTPClient(opts ClientOptions) *resty.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Accept == "" {
		opts.Accept = "application/json"
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", opts.Accept).
		SetHeader("User-Agent", opts.UserAgent)

	if opts.RetryCount > 0 {
		logger := opts.Logger
		client.
			SetRetryCount(opts.RetryCount).
			SetRetryWaitTime(defaultRetryWaitTime).
			SetRetryMaxWaitTime(defaultRetryMaxWaitTime).
			AddRetryConditions(retryCondition).
			AddRetryHooks(func(r *resty.Response, err error) {
				retryHook(logger, r, err)
			})
	}

	return client
}

// retryCondition retries transport errors, 5xx, 429 and 408.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	switch code := r.StatusCode(); {
	case code >= 500:
		return true
	case code == 429, code == 408:
		return true
	default:
		return false
	}
}

func retryHook(logger zerolog.Logger, r *resty.Response, err error) {
	if r == nil || r.Request == nil {
		logger.Debug().Err(err).Msg("retrying request")
		return
	}
	event := logger.Debug().
		Str("url", r.Request.URL).
		Int("attempt", r.Request.Attempt)
	if err != nil {
		event.Err(err).Msg("retrying request due to error")
		return
	}
	event.Int("status_code", r.StatusCode()).Msg("retrying request due to status code")
}
