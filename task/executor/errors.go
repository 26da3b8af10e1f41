package executor

import "errors"

var (
	// ErrQueueFull indicates the ready queue had no room for a new task.
	ErrQueueFull = errors.New("executor: ready queue full")

	// ErrNoCPU indicates Run was called on an executor without a CPU to halt.
	ErrNoCPU = errors.New("executor: no CPU attached")

	// ErrInvariant marks panics raised when the task map and the ready queue
	// disagree. They indicate a scheduler bug.
	ErrInvariant = errors.New("executor: invariant violated")
)
