package util

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "CLOSED"
	CircuitStateOpen     CircuitState = "OPEN"
	CircuitStateHalfOpen CircuitState = "HALF_OPEN"
)

func (s CircuitState) String() string {
	return string(s)
}

// CircuitBreaker guards an upstream API. After failureThreshold consecutive
// failures the circuit opens and calls are rejected until resetTimeout
// passes; the first call after that runs half-open.
type CircuitBreaker struct {
	name             string
	state            CircuitState
	failureCount     int
	failureThreshold int
	resetTimeout     time.Duration
	nextRetryTime    time.Time
	logger           *zap.Logger
	mu               sync.Mutex
}

func NewCircuitBreaker(name string, failureThreshold int, resetTimeout time.Duration, logger *zap.Logger) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreaker{
		name:             name,
		state:            CircuitStateClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		logger:           logger,
	}
}

// Allow reports whether a call may proceed, transitioning OPEN to HALF_OPEN
// once the reset timeout has elapsed.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitStateOpen {
		return nil
	}
	if time.Now().After(cb.nextRetryTime) {
		cb.state = CircuitStateHalfOpen
		cb.logger.Info("Circuit half-open, probing",
			zap.String("breaker", cb.name))
		return nil
	}
	return fmt.Errorf("circuit %s open until %s", cb.name, cb.nextRetryTime.Format(time.RFC3339))
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitStateClosed {
		cb.logger.Info("Circuit closed after successful probe",
			zap.String("breaker", cb.name))
	}
	cb.state = CircuitStateClosed
	cb.failureCount = 0
}

// RecordFailure counts a failure; retryAfter overrides the default reset
// timeout (used for rate-limit responses that say when to come back).
func (cb *CircuitBreaker) RecordFailure(retryAfter time.Duration) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	if cb.state == CircuitStateHalfOpen || cb.failureCount >= cb.failureThreshold {
		if retryAfter <= 0 {
			retryAfter = cb.resetTimeout
		}
		cb.state = CircuitStateOpen
		cb.nextRetryTime = time.Now().Add(retryAfter)
		cb.logger.Warn("Circuit opened",
			zap.String("breaker", cb.name),
			zap.Int("failures", cb.failureCount),
			zap.Duration("retry_after", retryAfter))
	}
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
