package core

import (
	"fmt"
	"sync"
)

// ModelLimiter enforces a maximum number of backend calls over an agent's lifetime.
type ModelLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewModelLimiter creates a new limiter with a max number of calls.
// If max == 0, unlimited calls are allowed.
func NewModelLimiter(max int) *ModelLimiter {
	return &ModelLimiter{max: max}
}

// Acquire reserves one call. It fails without consuming budget once the
// limit is reached.
func (ml *ModelLimiter) Acquire() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.max > 0 && ml.count >= ml.max {
		return fmt.Errorf("exceeded max model calls: %d", ml.max)
	}
	ml.count++

	return nil
}

// Release returns a reserved call to the budget. Used when a call never
// reached the backend.
func (ml *ModelLimiter) Release() {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.count > 0 {
		ml.count--
	}
}

// Count returns the current number of calls made.
func (ml *ModelLimiter) Count() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	return ml.count
}

// Remaining returns how many calls are left before hitting the limit.
func (ml *ModelLimiter) Remaining() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.max == 0 {
		return -1 // unlimited
	}

	return ml.max - ml.count
}
