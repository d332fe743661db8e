// Package apierr classifies failures of calls to remote AI providers.
//
// Adapters wrap every provider failure with their capability sentinel
// (domain.ErrEmbedding, domain.ErrGeneration) and, when it applies,
// domain.ErrTimeout or domain.ErrRateLimited so that callers can decide
// whether a retry makes sense.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// maxBodyLen bounds how much of an error response body is kept.
const maxBodyLen = 200

// Transport classifies an error returned before any HTTP status was seen.
func Transport(kind error, provider string, err error) error {
	if err == nil {
		return nil
	}
	if IsTimeout(err) {
		return fmt.Errorf("%w: %w: %s request timed out: %w", kind, domain.ErrTimeout, provider, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s request cancelled: %w", kind, provider, err)
	}
	return fmt.Errorf("%w: %s request failed: %w", kind, provider, err)
}

// Status classifies a non-2xx HTTP response.
func Status(kind error, provider string, status int, body string) error {
	body = Truncate(strings.TrimSpace(body))
	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: %s returned status %d: %s", kind, domain.ErrRateLimited, provider, status, body)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w: %s returned status %d: %s", kind, domain.ErrTimeout, provider, status, body)
	default:
		return fmt.Errorf("%w: %s returned status %d: %s", kind, provider, status, body)
	}
}

// Invalid reports a response that arrived but cannot be used.
func Invalid(kind error, provider, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", kind, provider, fmt.Sprintf(format, args...))
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Truncate shortens s to a loggable length.
func Truncate(s string) string {
	if len(s) <= maxBodyLen {
		return s
	}
	return s[:maxBodyLen] + "..."
}
