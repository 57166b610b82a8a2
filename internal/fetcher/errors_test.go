package fetcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{404, ErrorTypeNotFound, false},
		{429, ErrorTypeRateLimit, true},
		{500, ErrorTypeServer, true},
		{503, ErrorTypeServer, true},
		{401, ErrorTypeClient, false},
		{302, ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := ClassifyHTTPError(tt.status)
			if err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", err.Type, tt.wantType)
			}
			if err.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", err.Retryable, tt.retryable)
			}
			if err.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", err.StatusCode, tt.status)
			}
		})
	}
}

func TestClassifyTransportError(t *testing.T) {
	t.Run("deadline", func(t *testing.T) {
		err := ClassifyTransportError(fmt.Errorf("get: %w", context.DeadlineExceeded))
		if err.Type != ErrorTypeTimeout {
			t.Errorf("Type = %q, want %q", err.Type, ErrorTypeTimeout)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Error("cause should unwrap to context.DeadlineExceeded")
		}
	})

	t.Run("generic", func(t *testing.T) {
		err := ClassifyTransportError(errors.New("connection refused"))
		if err.Type != ErrorTypeNetwork {
			t.Errorf("Type = %q, want %q", err.Type, ErrorTypeNetwork)
		}
	})

	t.Run("already classified", func(t *testing.T) {
		orig := NewValidationError("bad payload")
		if got := ClassifyTransportError(fmt.Errorf("wrapped: %w", orig)); got != orig {
			t.Errorf("ClassifyTransportError() = %v, want original error", got)
		}
	})
}

func TestFetchError_Error(t *testing.T) {
	if got, want := NewRateLimitError(429).Error(), "rate_limit error (status 429): rate limit exceeded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got, want := NewNotFoundError("XYZ").Error(), "not_found error: no data for XYZ"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("x: %w", NewServerError(502))) {
		t.Error("server error should be retryable")
	}
	if IsRetryable(NewValidationError("nope")) {
		t.Error("validation error should not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error should not be retryable")
	}
}

func TestFundamentals_SetIgnoresNonFinite(t *testing.T) {
	f := NewFundamentals("")
	if f.Name != UnknownName {
		t.Errorf("Name = %q, want %q", f.Name, UnknownName)
	}

	zero := 0.0
	f.Set(MetricPE, zero/zero)
	if _, ok := f.Value(MetricPE); ok {
		t.Error("NaN should be treated as unknown")
	}

	f.Set(MetricPE, 0)
	if v, ok := f.Value(MetricPE); !ok || v != 0 {
		t.Errorf("Value(pe) = %v, %v; want 0, true", v, ok)
	}

	var nilRecord *Fundamentals
	if _, ok := nilRecord.Value(MetricROE); ok {
		t.Error("nil record should report no values")
	}
}
