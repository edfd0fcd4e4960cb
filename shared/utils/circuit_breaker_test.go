package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errUpstream = errors.New("upstream failed")

func newTestBreaker(now *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker("test", 3, 30*time.Second)
	cb.now = func() time.Time { return *now }
	return cb
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Call(func() error { return errUpstream }), errUpstream)
	}

	assert.Equal(t, StateOpen, cb.GetState())
	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	for i := 0; i < 3; i++ {
		_ = cb.Call(func() error { return errUpstream })
	}

	now = now.Add(31 * time.Second)
	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, 0, cb.Stats().Failures)
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	for i := 0; i < 3; i++ {
		_ = cb.Call(func() error { return errUpstream })
	}

	now = now.Add(31 * time.Second)
	assert.ErrorIs(t, cb.Call(func() error { return errUpstream }), errUpstream)
	assert.Equal(t, StateOpen, cb.GetState())
	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)

	_ = cb.Call(func() error { return errUpstream })
	_ = cb.Call(func() error { return errUpstream })
	assert.NoError(t, cb.Call(func() error { return nil }))
	_ = cb.Call(func() error { return errUpstream })

	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, 1, cb.Stats().Failures)
}

func TestCircuitBreaker_CancelledContextIsNotAFailure(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		err := cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
		assert.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)
	for i := 0; i < 3; i++ {
		_ = cb.Call(func() error { return errUpstream })
	}

	cb.Reset()

	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Call(func() error { return nil }))
}
