// Package spinlock provides a busy-waiting lock that is safe to use where
// blocking primitives are unavailable.
package spinlock

import (
	"runtime"
	"sync/atomic"
)

// yieldFn is invoked after a number of failed acquisition attempts. Tests
// replace it to observe contention.
var (
	yieldFnDefault = runtime.Gosched
	yieldFn        = yieldFnDefault
)

// attemptsBeforeYielding bounds the tight spin before yieldFn is called.
const attemptsBeforeYielding = 64

// Spinlock implements a lock where each caller trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state atomic.Uint32
}

// Acquire blocks until the lock can be acquired. Any attempt to re-acquire a
// lock already held by the caller will deadlock.
func (l *Spinlock) Acquire() {
	for {
		for i := 0; i < attemptsBeforeYielding; i++ {
			if l.state.Load() == 0 && l.state.CompareAndSwap(0, 1) {
				return
			}
		}
		yieldFn()
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return l.state.Swap(1) == 0
}

// Release relinquishes a held lock allowing other callers to acquire it.
// Calling Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	l.state.Store(0)
}

// Lock and Unlock let a Spinlock be used as a sync.Locker.
func (l *Spinlock) Lock()   { l.Acquire() }
func (l *Spinlock) Unlock() { l.Release() }
