package gyro

import "sync"

// Shared is a gyro source guarded by a read-write lock so that readers of the current
// orientation series never observe a partially applied transform.
type Shared struct {
	mu     sync.RWMutex
	source *Source
}

// NewShared wraps source. The caller must not keep using source directly.
func NewShared(source *Source) *Shared {
	return &Shared{source: source}
}

// View calls fn with the source under the read lock. fn must not retain or modify it.
func (sh *Shared) View(fn func(*Source)) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	fn(sh.source)
}

// Snapshot returns an independently owned deep copy of the source.
func (sh *Shared) Snapshot() *Source {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.source.Clone()
}

// Update calls fn with the source under the write lock.
func (sh *Shared) Update(fn func(*Source)) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	fn(sh.source)
}
