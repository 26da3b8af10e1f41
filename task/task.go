// Package task defines the units of cooperative work run by the kernel
// executor: futures, their poll results, and the wakers that reschedule them.
package task

import (
	"fmt"
	"sync/atomic"
)

// Poll is the result of polling a Future.
type Poll uint8

const (
	// Pending means the future cannot make progress until its waker is
	// invoked.
	Pending Poll = iota

	// Ready means the future has completed and must not be polled again.
	Ready
)

func (p Poll) String() string {
	if p == Ready {
		return "Ready"
	}
	return "Pending"
}

// Future is an asynchronous computation driven by repeated polling. Poll must
// not block. A future that returns Pending must arrange for cx.Waker() to be
// invoked once it can make progress, or it will never be polled again.
type Future interface {
	Poll(cx *Context) Poll
}

// FutureFunc adapts a function to the Future interface.
type FutureFunc func(cx *Context) Poll

// Poll implements Future.
func (f FutureFunc) Poll(cx *Context) Poll { return f(cx) }

// Context is handed to every poll.
type Context struct {
	waker *Waker
}

// NewContext returns a Context carrying w.
func NewContext(w *Waker) *Context {
	return &Context{waker: w}
}

// Waker returns the waker of the task being polled.
func (cx *Context) Waker() *Waker { return cx.waker }

// TaskID identifies a task for the lifetime of the kernel. IDs are never
// reused.
type TaskID uint64

func (id TaskID) String() string { return fmt.Sprintf("task#%d", uint64(id)) }

var nextID atomic.Uint64

// NewTaskID returns a fresh, globally unique ID.
func NewTaskID() TaskID {
	return TaskID(nextID.Add(1) - 1)
}

// Task is one spawned future with its ID. The future is held behind a pointer
// that the executor never copies out, so its state stays at one address for
// the task's lifetime.
type Task struct {
	id     TaskID
	future Future
}

// New wraps f in a Task with a fresh ID.
func New(f Future) *Task {
	return &Task{id: NewTaskID(), future: f}
}

// ID returns the task's ID.
func (t *Task) ID() TaskID { return t.id }

// Poll polls the underlying future once.
func (t *Task) Poll(cx *Context) Poll {
	return t.future.Poll(cx)
}
