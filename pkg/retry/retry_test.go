package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")

func TestSingleMakesOneAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Single(), func() error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestBackoffRetriesUntilSuccess(t *testing.T) {
	cfg := Backoff(3, nil, nil)
	cfg.InitialDelay = time.Millisecond

	calls := 0
	got, err := DoWithResult(context.Background(), cfg, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetryableStopsEarly(t *testing.T) {
	permanent := errors.New("permanent")
	cfg := Backoff(5, func(err error) bool { return errors.Is(err, errTransient) }, nil)
	cfg.InitialDelay = time.Millisecond

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, Backoff(3, nil, nil), func() error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
