package federation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusErrorClassification(t *testing.T) {
	assert.ErrorIs(t, &StatusError{Code: 404}, ErrNotFound)
	assert.ErrorIs(t, &StatusError{Code: 429}, ErrRateLimited)
	assert.ErrorIs(t, &StatusError{Code: 503}, ErrRateLimited)
	assert.NotErrorIs(t, &StatusError{Code: 500}, ErrNotFound)
	assert.NotErrorIs(t, &StatusError{Code: 500}, ErrRateLimited)
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(ErrNotFound))
	assert.False(t, Retryable(ErrUnsupported))
	assert.True(t, Retryable(ErrRateLimited))
	assert.True(t, Retryable(ErrTimeout))
	assert.True(t, Retryable(errors.New("connection reset")))
	assert.True(t, Retryable(fmt.Errorf("wrapped: %w", ErrRateLimited)))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "not_found", Reason(ErrNotFound))
	assert.Equal(t, "rate_limited", Reason(&StatusError{Code: 429}))
	assert.Equal(t, "timeout", Reason(ErrTimeout))
	assert.Equal(t, "unsupported", Reason(ErrUnsupported))
	assert.Equal(t, "unknown", Reason(errors.New("boom")))
}

func TestWrapTransportTimeout(t *testing.T) {
	err := wrapTransport(fmt.Errorf("do: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrTimeout)

	assert.Nil(t, wrapTransport(nil))
	plain := errors.New("refused")
	assert.Equal(t, plain, wrapTransport(plain))
}
