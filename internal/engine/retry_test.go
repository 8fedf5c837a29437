package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() *RetryPolicy {
	return &RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryWithBackoff_SucceedsAfterTransientErrors(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("throttled: rate exceeded")
		}
		return nil
	}, IsTransientError)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_NonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	boom := errors.New("access denied")
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		attempts++
		return boom
	}, IsTransientError)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		attempts++
		return errors.New("service unavailable")
	}, IsTransientError)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
	assert.Equal(t, 4, attempts) // initial try + 3 retries
}

func TestRetryWithBackoff_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := &RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	done := make(chan error, 1)
	go func() {
		done <- RetryWithBackoff(ctx, policy, func() error {
			return errors.New("timeout")
		}, IsTransientError)
	}()

	cancel()
	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestRetryWithBackoff_NilPolicyUsesDefault(t *testing.T) {
	err := RetryWithBackoff(context.Background(), nil, func() error { return nil }, IsTransientError)
	assert.NoError(t, err)
}

func TestBackoffDelay_Bounded(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := backoffDelay(attempt, time.Second, 30*time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 30*time.Second)
	}
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "throttling", err: errors.New("Throttling: Rate exceeded"), want: true},
		{name: "connection reset", err: errors.New("read tcp: connection reset by peer"), want: true},
		{name: "iam propagation", err: errors.New("InvalidParameterValue: IAM Instance Profile not found"), want: true},
		{name: "role propagation", err: errors.New("CodeBuild is not authorized: role cannot be assumed"), want: true},
		{name: "access denied", err: errors.New("AccessDenied: not authorized"), want: false},
		{name: "validation", err: errors.New("ValidationException: name too long"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransientError(tt.err))
		})
	}
}
