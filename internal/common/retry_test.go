package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-plan-must-flow/internal/service"
)

func fastRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry(t *testing.T) {
	errTransient := errors.New("connection reset")

	tests := []struct {
		err       func(attempt int) error
		wantErr   error
		name      string
		wantCalls int
	}{
		{
			name:      "succeeds first time",
			err:       func(int) error { return nil },
			wantCalls: 1,
		},
		{
			name: "succeeds after transient failures",
			err: func(attempt int) error {
				if attempt < 3 {
					return errTransient
				}
				return nil
			},
			wantCalls: 3,
		},
		{
			name:      "gives up after max attempts",
			err:       func(int) error { return errTransient },
			wantErr:   ErrMaxRetries,
			wantCalls: 3,
		},
		{
			name: "stops on explicit non-retryable error",
			err: func(int) error {
				return &RetryableError{Err: errTransient, Retryable: false}
			},
			wantErr:   errTransient,
			wantCalls: 1,
		},
		{
			name:      "stops on malformed input",
			err:       func(int) error { return Malformed("bad row %d", 2) },
			wantErr:   ErrMalformedInput,
			wantCalls: 1,
		},
		{
			name: "retries rate limits",
			err: func(attempt int) error {
				if attempt == 1 {
					return fmt.Errorf("quota: %w", ErrRateLimit)
				}
				return nil
			},
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				calls++
				return tt.err(calls)
			}, fastRetry(3))

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestWithRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return errors.New("unavailable")
	}, service.RetryOptions{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("timeout")))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("503"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: ErrRateLimit, Retryable: false}))
	assert.False(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrMalformedInput)))
	assert.False(t, IsRetryable(context.Canceled))
}
