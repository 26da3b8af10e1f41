package keyboard

import (
	"sync/atomic"

	"github.com/joshuapare/kcore/task"
)

// AtomicWaker holds at most one waker that can be registered by the consumer
// and taken by an interrupt handler without locks.
type AtomicWaker struct {
	w atomic.Pointer[task.Waker]
}

// Register stores w, replacing any earlier registration.
func (a *AtomicWaker) Register(w *task.Waker) {
	a.w.Store(w)
}

// Take removes and returns the registered waker, if any.
func (a *AtomicWaker) Take() *task.Waker {
	return a.w.Swap(nil)
}

// Registered reports whether a waker is stored.
func (a *AtomicWaker) Registered() bool {
	return a.w.Load() != nil
}

// Wake takes the registered waker and wakes it.
func (a *AtomicWaker) Wake() {
	if w := a.Take(); w != nil {
		w.Wake()
	}
}
