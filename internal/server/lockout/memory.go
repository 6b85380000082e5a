package lockout

import (
	"context"
	"sync"
)

// MemoryTracker keeps counters in process memory. State is lost on restart.
// A single mutex guards the whole map.
type MemoryTracker struct {
	mu        sync.Mutex
	failures  map[string]int
	threshold int
}

// NewMemoryTracker returns an empty tracker. A non-positive threshold falls
// back to DefaultThreshold.
func NewMemoryTracker(threshold int) *MemoryTracker {
	return &MemoryTracker{
		failures:  make(map[string]int),
		threshold: normalizeThreshold(threshold),
	}
}

func (t *MemoryTracker) RecordFailure(_ context.Context, identifier string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failures[identifier]++
	return t.failures[identifier], nil
}

func (t *MemoryTracker) Reset(_ context.Context, identifier string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.failures, identifier)
	return nil
}

func (t *MemoryTracker) IsLocked(_ context.Context, identifier string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.failures[identifier] >= t.threshold, nil
}

func (t *MemoryTracker) Count(_ context.Context, identifier string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.failures[identifier], nil
}

func (t *MemoryTracker) ResetAll(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failures = make(map[string]int)
	return nil
}

func (t *MemoryTracker) Threshold() int {
	return t.threshold
}
