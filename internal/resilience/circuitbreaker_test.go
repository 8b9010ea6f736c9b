package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("yahoo", CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		Now:              clock.Now,
	})
	boom := errors.New("upstream down")

	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, CircuitClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, CircuitOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clock.now = clock.now.Add(time.Minute)
	v, err := ExecuteWithResult(cb, func() (float64, error) { return 24310.5, nil })
	require.NoError(t, err)
	assert.Equal(t, 24310.5, v)
	assert.Equal(t, CircuitClosed, cb.State())

	stats := cb.Stats()
	assert.Equal(t, "yahoo", stats.Name)
	assert.Equal(t, int64(4), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.TotalRejected)
	assert.Equal(t, 50.0, stats.FailureRate())
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("nse", CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Second, Now: clock.Now})
	boom := errors.New("403")

	_ = cb.Execute(func() error { return boom })
	require.Equal(t, CircuitOpen, cb.State())

	clock.now = clock.now.Add(2 * time.Second)
	_ = cb.Execute(func() error { return boom })
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitBreakerHalfOpenAdmitsOneCall(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC)}
	cb := NewCircuitBreaker("yahoo", CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Second, Now: clock.Now})

	_ = cb.Execute(func() error { return errors.New("timeout") })
	require.Equal(t, CircuitOpen, cb.State())
	clock.now = clock.now.Add(2 * time.Second)

	var concurrent error
	err := cb.Execute(func() error {
		assert.Equal(t, CircuitHalfOpen, cb.State())
		concurrent = cb.Execute(func() error { return nil })
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, concurrent, ErrCircuitOpen)
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Equal(t, int64(1), cb.Stats().TotalRejected)

	assert.NoError(t, cb.Execute(func() error { return nil }))
}
