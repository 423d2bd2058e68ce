package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerClosedState(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 2, time.Minute)

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
	}
	state, failures, _ := cb.GetMetrics()
	assert.Equal(t, CircuitClosed, state)
	assert.Equal(t, 2, failures)

	// Success resets the failure count
	cb.RecordSuccess()
	_, failures, _ = cb.GetMetrics()
	assert.Equal(t, 0, failures)
	assert.NoError(t, cb.Allow())
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("test", 1, 2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	state, _, _ := cb.GetMetrics()
	assert.Equal(t, CircuitOpen, state)
	assert.ErrorIs(t, cb.Allow(), ErrCircuitOpen)

	now = now.Add(2 * time.Minute)
	assert.NoError(t, cb.Allow())
	state, _, _ = cb.GetMetrics()
	assert.Equal(t, CircuitHalfOpen, state)

	cb.RecordSuccess()
	cb.RecordSuccess()
	state, failures, _ := cb.GetMetrics()
	assert.Equal(t, CircuitClosed, state)
	assert.Equal(t, 0, failures)
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("test", 1, 2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	now = now.Add(2 * time.Minute)
	assert.NoError(t, cb.Allow())

	cb.RecordFailure()
	state, _, _ := cb.GetMetrics()
	assert.Equal(t, CircuitOpen, state)
}

func TestCircuitBreakerThreadSafety(t *testing.T) {
	cb := NewCircuitBreaker("test", 1000, 2, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb.RecordFailure()
			_ = cb.Allow()
		}()
	}
	wg.Wait()

	_, failures, _ := cb.GetMetrics()
	assert.Equal(t, 50, failures)
}

func TestCircuitStateString(t *testing.T) {
	assert.Equal(t, "CLOSED", CircuitClosed.String())
	assert.Equal(t, "OPEN", CircuitOpen.String())
	assert.Equal(t, "HALF_OPEN", CircuitHalfOpen.String())
	assert.Equal(t, "UNKNOWN", CircuitState(42).String())
}
