package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType tags why a provider could not return fundamentals for an
// instrument. It is what the screen report groups failures by.
type ErrorType string

const (
	// ErrorTypeNetwork: the provider host was unreachable.
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeRateLimit: the provider answered 429.
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServer: the provider answered 5xx.
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeClient: any other 4xx, including a rejected crumb or an
	// exhausted FinMind quota.
	ErrorTypeClient ErrorType = "client"
	// ErrorTypeValidation: the payload arrived but is not usable fundamentals.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeTimeout: the per-instrument or run deadline expired.
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeNotFound: the provider has no such ticker.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeUnknown: a status outside the ranges above.
	ErrorTypeUnknown ErrorType = "unknown"
)

// FetchError is the failure recorded against one instrument of a screen.
// Retryable marks failures that may clear up on another attempt.
type FetchError struct {
	Type       ErrorType
	Retryable  bool
	StatusCode int
	Message    string
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewNetworkError wraps a dial or read failure on the provider connection.
func NewNetworkError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeNetwork,
		Retryable: true,
		Message:   "network request failed",
		Cause:     cause,
	}
}

// NewRateLimitError reports that the provider throttled us.
func NewRateLimitError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeRateLimit,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "rate limit exceeded",
	}
}

// NewServerError reports a provider-side outage.
func NewServerError(statusCode int) *FetchError {
	return &FetchError{
		Type:       ErrorTypeServer,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "server returned an error",
	}
}

// NewClientError reports a request the provider refused, with its reason.
func NewClientError(statusCode int, message string) *FetchError {
	return &FetchError{
		Type:       ErrorTypeClient,
		Retryable:  false,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewValidationError reports a payload that could not be read as fundamentals.
func NewValidationError(message string) *FetchError {
	return &FetchError{
		Type:      ErrorTypeValidation,
		Retryable: false,
		Message:   message,
	}
}

// NewTimeoutError reports an instrument whose fetch outlived its deadline.
func NewTimeoutError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeTimeout,
		Retryable: true,
		Message:   "request timed out",
		Cause:     cause,
	}
}

// NewNotFoundError reports a ticker the provider has never heard of.
func NewNotFoundError(ticker string) *FetchError {
	return &FetchError{
		Type:      ErrorTypeNotFound,
		Retryable: false,
		Message:   fmt.Sprintf("no data for %s", ticker),
	}
}

// ClassifyHTTPError maps a non-2xx provider status to the failure taxonomy.
// 404 means an unknown ticker rather than a missing route.
func ClassifyHTTPError(statusCode int) *FetchError {
	switch {
	case statusCode == 404:
		return &FetchError{
			Type:       ErrorTypeNotFound,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    "resource not found",
		}
	case statusCode == 429:
		return NewRateLimitError(statusCode)
	case statusCode >= 500:
		return NewServerError(statusCode)
	case statusCode >= 400:
		return NewClientError(statusCode, fmt.Sprintf("client error: HTTP %d", statusCode))
	default:
		return &FetchError{
			Type:       ErrorTypeUnknown,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		}
	}
}

// ClassifyTransportError maps an error returned before any HTTP status was
// received. Expired deadlines become timeouts, the rest network failures.
func ClassifyTransportError(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(err)
	}
	return NewNetworkError(err)
}

// IsRetryable reports whether err is a FetchError marked retryable.
func IsRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Retryable
}
