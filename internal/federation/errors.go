package federation

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors shared by all dialect backends. Callers branch on these
// with errors.Is; everything else is an unknown transport fault.
var (
	ErrNotFound    = errors.New("remote entity not found")
	ErrRateLimited = errors.New("rate limited")
	ErrTimeout     = errors.New("request timed out")
	// ErrUnsupported marks a capability gap of the dialect, not a runtime
	// fault. The policy gates are supposed to keep it from ever surfacing.
	ErrUnsupported = errors.New("operation not supported")
)

// StatusError is an HTTP-level failure from a remote instance.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote API error (status %d): %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == 404:
		return ErrNotFound
	case e.Code == 429 || e.Code == 503:
		return ErrRateLimited
	default:
		return nil
	}
}

// Retryable reports whether the failure may succeed on a later sweep.
// Policy denials and capability gaps are deterministic, everything else
// (rate limits, timeouts, unknown faults) is worth retrying.
func Retryable(err error) bool {
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrUnsupported)
}

// Reason maps a failure to the short machine-readable string persisted on
// an ERROR follow row.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	default:
		return "unknown"
	}
}

// wrapTransport normalizes low-level transport failures so timeouts are
// classified uniformly across backends.
func wrapTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrTimeout, err.Error())
	}
	return err
}
