package agent

import (
	"strings"
	"sync"
)

// tenantLock is a refcounted mutex; the map entry is dropped once no
// waiter holds a reference, so idle tenants cost nothing.
type tenantLock struct {
	mu   sync.Mutex
	refs int
}

// RunLocks serializes interactive runs per tenant. Starting a second run
// on a tenant's interactive thread before the prior run resolves would
// corrupt the upstream thread state, so every interactive message handler
// must hold the tenant's lock for the duration of the run.
type RunLocks struct {
	mu    sync.Mutex
	locks map[string]*tenantLock
}

// NewRunLocks creates an empty lock table.
func NewRunLocks() *RunLocks {
	return &RunLocks{locks: make(map[string]*tenantLock)}
}

// Lock acquires the tenant's run lock and returns the release function.
func (r *RunLocks) Lock(tenantID string) func() {
	if strings.TrimSpace(tenantID) == "" {
		return func() {}
	}

	r.mu.Lock()
	lock := r.locks[tenantID]
	if lock == nil {
		lock = &tenantLock{}
		r.locks[tenantID] = lock
	}
	lock.refs++
	r.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		r.mu.Lock()
		lock.refs--
		if lock.refs <= 0 {
			delete(r.locks, tenantID)
		}
		r.mu.Unlock()
	}
}
