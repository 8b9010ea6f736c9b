package resilience

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusDegraded  HealthStatus = "DEGRADED"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"
)

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Name      string                 `json:"name"`
	Status    HealthStatus           `json:"status"`
	Message   string                 `json:"message"`
	LastCheck time.Time              `json:"lastCheck"`
	Latency   time.Duration          `json:"latencyNs,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HealthCheck represents a health check function.
type HealthCheck func(ctx context.Context) ComponentHealth

// SystemHealth is the aggregate of a set of component checks.
type SystemHealth struct {
	Status     HealthStatus      `json:"status"`
	CheckedAt  time.Time         `json:"checkedAt"`
	Components []ComponentHealth `json:"components"`
}

// RunChecks runs every check in order and reports the worst status seen.
func RunChecks(ctx context.Context, now time.Time, checks ...HealthCheck) SystemHealth {
	health := SystemHealth{
		Status:     HealthStatusHealthy,
		CheckedAt:  now,
		Components: make([]ComponentHealth, 0, len(checks)),
	}
	for _, check := range checks {
		c := check(ctx)
		health.Components = append(health.Components, c)
		if severity(c.Status) > severity(health.Status) {
			health.Status = c.Status
		}
	}
	return health
}

func severity(s HealthStatus) int {
	switch s {
	case HealthStatusHealthy:
		return 0
	case HealthStatusDegraded:
		return 1
	default:
		return 2
	}
}

// BreakerHealthCheck reports an open breaker as degraded: callers still get
// a fallback quote, just not a live one.
func BreakerHealthCheck(cb *CircuitBreaker) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		stats := cb.Stats()
		health := ComponentHealth{
			Name:      cb.Name(),
			LastCheck: cb.config.Now(),
			Details: map[string]interface{}{
				"state":        stats.State,
				"failures":     stats.TotalFailures,
				"rejected":     stats.TotalRejected,
				"failure_rate": stats.FailureRate(),
				"last_error":   stats.LastError,
			},
		}

		switch stats.State {
		case CircuitClosed:
			health.Status = HealthStatusHealthy
			health.Message = "Source available"
		case CircuitHalfOpen:
			health.Status = HealthStatusDegraded
			health.Message = "Source recovering"
		default:
			health.Status = HealthStatusDegraded
			health.Message = fmt.Sprintf("Source disabled since %s", stats.LastStateChange.Format(time.RFC3339))
		}
		return health
	}
}

// DatabaseHealthCheck creates a health check for the quote cache connection.
func DatabaseHealthCheck(name string, ping func(ctx context.Context) error) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		health := ComponentHealth{
			Name:      name,
			LastCheck: time.Now(),
		}

		start := time.Now()
		err := ping(ctx)
		health.Latency = time.Since(start)

		if err != nil {
			health.Status = HealthStatusUnhealthy
			health.Message = fmt.Sprintf("Cache ping failed: %v", err)
			return health
		}

		if health.Latency > 100*time.Millisecond {
			health.Status = HealthStatusDegraded
			health.Message = fmt.Sprintf("Cache slow: %v", health.Latency)
			return health
		}

		health.Status = HealthStatusHealthy
		health.Message = fmt.Sprintf("Cache healthy: %v", health.Latency)
		return health
	}
}
