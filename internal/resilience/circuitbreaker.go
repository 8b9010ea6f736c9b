// Package resilience guards upstream market-data sources with circuit breakers.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"    // quotes flow
	CircuitOpen     CircuitState = "OPEN"      // source skipped
	CircuitHalfOpen CircuitState = "HALF_OPEN" // one trial call at a time
)

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failed fetches that open the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that close it again.
	SuccessThreshold int
	// Timeout is the cool-down before an open circuit admits a trial call.
	Timeout time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// DefaultCircuitBreakerConfig opens after five failed fetches and retries after a minute.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	}
}

// ErrCircuitOpen is returned without calling the source while its circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker tracks one upstream source.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       CircuitState
	consecutive int // failures while closed, successes while half-open
	probing     bool
	openedAt    time.Time
	changedAt   time.Time
	lastErr     error
	counts      struct{ requests, successes, failures, rejected int64 }
}

// NewCircuitBreaker creates a closed breaker. Thresholds below one are raised to one.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.Now == nil {
		config.Now = time.Now
	}
	config.FailureThreshold = max(config.FailureThreshold, 1)
	config.SuccessThreshold = max(config.SuccessThreshold, 1)
	return &CircuitBreaker{
		name:      name,
		config:    config,
		state:     CircuitClosed,
		changedAt: config.Now(),
	}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	_, err := ExecuteWithResult(cb, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// ExecuteWithResult runs fn unless the circuit is open and records its outcome.
func ExecuteWithResult[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	if err := cb.admit(); err != nil {
		var zero T
		return zero, err
	}
	v, err := fn()
	cb.record(err)
	return v, err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.counts.requests++
	if cb.state == CircuitOpen && cb.config.Now().Sub(cb.openedAt) >= cb.config.Timeout {
		cb.moveTo(CircuitHalfOpen)
	}

	switch {
	case cb.state == CircuitClosed:
		return nil
	case cb.state == CircuitHalfOpen && !cb.probing:
		cb.probing = true
		return nil
	default:
		cb.counts.rejected++
		return ErrCircuitOpen
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if err == nil {
		cb.counts.successes++
		switch cb.state {
		case CircuitHalfOpen:
			cb.consecutive++
			if cb.consecutive >= cb.config.SuccessThreshold {
				cb.moveTo(CircuitClosed)
			}
		case CircuitClosed:
			cb.consecutive = 0
		}
		return
	}

	cb.counts.failures++
	cb.lastErr = err
	switch cb.state {
	case CircuitClosed:
		cb.consecutive++
		if cb.consecutive >= cb.config.FailureThreshold {
			cb.open()
		}
	case CircuitHalfOpen:
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.moveTo(CircuitOpen)
	cb.openedAt = cb.changedAt
}

func (cb *CircuitBreaker) moveTo(state CircuitState) {
	cb.state = state
	cb.changedAt = cb.config.Now()
	cb.consecutive = 0
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name returns the source the breaker guards.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Stats returns a snapshot of the breaker.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stats := CircuitBreakerStats{
		Name:            cb.name,
		State:           cb.state,
		TotalRequests:   cb.counts.requests,
		TotalSuccesses:  cb.counts.successes,
		TotalFailures:   cb.counts.failures,
		TotalRejected:   cb.counts.rejected,
		LastStateChange: cb.changedAt,
	}
	if cb.lastErr != nil {
		stats.LastError = cb.lastErr.Error()
	}
	return stats
}

// CircuitBreakerStats holds circuit breaker statistics.
type CircuitBreakerStats struct {
	Name            string       `json:"name"`
	State           CircuitState `json:"state"`
	TotalRequests   int64        `json:"totalRequests"`
	TotalSuccesses  int64        `json:"totalSuccesses"`
	TotalFailures   int64        `json:"totalFailures"`
	TotalRejected   int64        `json:"totalRejected"`
	LastError       string       `json:"lastError,omitempty"`
	LastStateChange time.Time    `json:"lastStateChange"`
}

// FailureRate returns failed fetches as a percentage of all requests.
func (s CircuitBreakerStats) FailureRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.TotalFailures) / float64(s.TotalRequests) * 100
}
