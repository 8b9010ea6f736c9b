package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryReusesBreakers(t *testing.T) {
	reg := NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig())

	a := reg.Get("yahoo")
	assert.Same(t, a, reg.Get("yahoo"))
	reg.Get("kite")

	stats := reg.AllStats()
	require.Len(t, stats, 2)
	assert.Equal(t, "kite", stats[0].Name)
	assert.Equal(t, "yahoo", stats[1].Name)
}

func TestRunChecksReportsWorstStatus(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC)}
	reg := NewCircuitBreakerRegistry(CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Minute, Now: clock.Now})
	_ = reg.Get("kite").Execute(func() error { return errors.New("token expired") })
	reg.Get("yahoo")

	health := RunChecks(context.Background(), clock.now, reg.HealthChecks()...)
	require.Len(t, health.Components, 2)
	assert.Equal(t, HealthStatusDegraded, health.Status)
	assert.Equal(t, HealthStatusDegraded, health.Components[0].Status)
	assert.Equal(t, CircuitOpen, health.Components[0].Details["state"])
	assert.Equal(t, HealthStatusHealthy, health.Components[1].Status)

	failing := DatabaseHealthCheck("cache", func(context.Context) error { return errors.New("closed") })
	health = RunChecks(context.Background(), clock.now, append(reg.HealthChecks(), failing)...)
	assert.Equal(t, HealthStatusUnhealthy, health.Status)
	assert.Contains(t, health.Components[2].Message, "closed")
}

func TestRunChecksEmptyIsHealthy(t *testing.T) {
	health := RunChecks(context.Background(), time.Now())
	assert.Equal(t, HealthStatusHealthy, health.Status)
	assert.Empty(t, health.Components)
}
