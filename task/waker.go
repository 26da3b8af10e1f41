package task

import "sync/atomic"

// Waker states.
const (
	wakerIdle uint32 = iota
	wakerQueued
	wakerDead
)

// ScheduleFunc pushes id onto a ready queue. It must not block or allocate and
// reports false when the queue is full.
type ScheduleFunc func(id TaskID) bool

// Waker reschedules one task. It is safe to call Wake from interrupt context,
// from other tasks, any number of times, and after the task has completed.
//
// The state word guarantees that a task is on the ready queue at most once:
// Wake moves idle to queued and pushes; the executor moves queued back to
// idle right before polling, and to dead when the task completes.
type Waker struct {
	id       TaskID
	state    atomic.Uint32
	schedule ScheduleFunc
}

// NewWaker returns an idle waker that calls schedule on the first Wake.
func NewWaker(id TaskID, schedule ScheduleFunc) *Waker {
	return &Waker{id: id, schedule: schedule}
}

// NoopWaker returns a waker whose Wake does nothing.
func NoopWaker() *Waker {
	return &Waker{}
}

// ID returns the ID of the task this waker reschedules.
func (w *Waker) ID() TaskID { return w.id }

// Wake schedules the task unless it is already queued or has completed.
func (w *Waker) Wake() {
	if w.schedule == nil {
		return
	}
	if !w.state.CompareAndSwap(wakerIdle, wakerQueued) {
		return
	}
	if !w.schedule(w.id) {
		// Queue full: the wake is lost, but a later one may still succeed.
		w.state.CompareAndSwap(wakerQueued, wakerIdle)
	}
}

// Clone returns w. A task has a single cached waker, so clones share state.
func (w *Waker) Clone() *Waker { return w }

// Rearm moves a queued waker back to idle. Executors call it immediately
// before polling, so wakes issued during the poll queue the task again.
func (w *Waker) Rearm() {
	w.state.CompareAndSwap(wakerQueued, wakerIdle)
}

// Retire marks the waker dead and reports whether the task still had an
// entry on the ready queue.
func (w *Waker) Retire() (wasQueued bool) {
	return w.state.Swap(wakerDead) == wakerQueued
}

// Queued reports whether the task is on the ready queue.
func (w *Waker) Queued() bool { return w.state.Load() == wakerQueued }
