// Package executor runs tasks cooperatively on a single CPU.
package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/joshuapare/kcore/heap"
	"github.com/joshuapare/kcore/internal/arrayqueue"
	"github.com/joshuapare/kcore/internal/cpu"
	"github.com/joshuapare/kcore/task"
)

const (
	// DefaultReadyCapacity is the ready queue size when none is configured.
	DefaultReadyCapacity = 100

	// ControlBlockSize is the per-task reservation taken from the kernel heap.
	ControlBlockSize uintptr = 64

	controlBlockAlign uintptr = 8
)

// Options configures an Executor.
type Options struct {
	// CPU is halted when no task is ready. Required by Run.
	CPU cpu.CPU

	// Heap, when set, holds a control block for every live task.
	Heap *heap.Heap

	// ReadyCapacity bounds the ready queue (default DefaultReadyCapacity).
	ReadyCapacity int

	// Logger receives warnings such as lost wakes (default: discard).
	Logger *slog.Logger
}

// Stats holds executor counters.
type Stats struct {
	Spawned   uint64
	Polls     uint64
	Completed uint64
	Wakes     uint64 // wakes that queued a task
	LostWakes uint64 // wakes dropped because the ready queue was full
	Stale     uint64 // queue entries skipped for already-completed tasks
	Halts     uint64
}

type entry struct {
	task *task.Task
	tcb  uintptr
}

// Executor owns every spawned task. Spawn, RunReady and Run must be called from
// a single goroutine; wakers may fire from any goroutine, including interrupt
// handlers.
type Executor struct {
	cpu    cpu.CPU
	heap   *heap.Heap
	logger *slog.Logger

	tasks  map[task.TaskID]*entry
	ready  *arrayqueue.ArrayQueue[task.TaskID]
	wakers map[task.TaskID]*task.Waker

	// retired counts ready-queue entries left behind by tasks that completed
	// while a wake was outstanding. Each is skipped exactly once.
	retired map[task.TaskID]int

	spawned, polls, completed, stale, halts uint64
	wakes, lostWakes                        atomic.Uint64
}

// New creates an executor.
func New(opts Options) *Executor {
	capacity := opts.ReadyCapacity
	if capacity <= 0 {
		capacity = DefaultReadyCapacity
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{
		cpu:     opts.CPU,
		heap:    opts.Heap,
		logger:  logger,
		tasks:   make(map[task.TaskID]*entry),
		ready:   arrayqueue.New[task.TaskID](capacity),
		wakers:  make(map[task.TaskID]*task.Waker),
		retired: make(map[task.TaskID]int),
	}
}

// Spawn takes ownership of t and queues it as ready.
func (e *Executor) Spawn(t *task.Task) error {
	id := t.ID()
	if _, dup := e.tasks[id]; dup {
		panic(fmt.Errorf("%w: task %v already spawned", ErrInvariant, id))
	}

	ent := &entry{task: t}
	if e.heap != nil {
		tcb, err := e.heap.Alloc(ControlBlockSize, controlBlockAlign)
		if err != nil {
			return fmt.Errorf("executor: spawn %v: %w", id, err)
		}
		ent.tcb = tcb
	}

	if !e.ready.Push(id) {
		e.freeControlBlock(ent)
		return fmt.Errorf("%w: spawn %v", ErrQueueFull, id)
	}
	e.tasks[id] = ent
	e.spawned++
	return nil
}

// schedule is the ScheduleFunc behind every waker.
func (e *Executor) schedule(id task.TaskID) bool {
	if !e.ready.Push(id) {
		e.lostWakes.Add(1)
		e.logger.Warn("ready queue full; dropping wake", "task", id)
		return false
	}
	e.wakes.Add(1)
	return true
}

// RunReady polls tasks until the ready queue is empty. Tasks woken while they
// run are polled again in the same call.
func (e *Executor) RunReady() {
	for {
		id, ok := e.ready.Pop()
		if !ok {
			return
		}

		ent, ok := e.tasks[id]
		if !ok {
			if n := e.retired[id]; n > 0 {
				if n == 1 {
					delete(e.retired, id)
				} else {
					e.retired[id] = n - 1
				}
				e.stale++
				continue
			}
			panic(fmt.Errorf("%w: ready task %v not in task map", ErrInvariant, id))
		}

		w, ok := e.wakers[id]
		if !ok {
			w = task.NewWaker(id, e.schedule)
			e.wakers[id] = w
		}
		w.Rearm()

		e.polls++
		if ent.task.Poll(task.NewContext(w)) == task.Ready {
			delete(e.tasks, id)
			delete(e.wakers, id)
			if w.Retire() {
				e.retired[id]++
			}
			e.freeControlBlock(ent)
			e.completed++
		}
	}
}

func (e *Executor) freeControlBlock(ent *entry) {
	if e.heap == nil || ent.tcb == 0 {
		return
	}
	if err := e.heap.Dealloc(ent.tcb, ControlBlockSize, controlBlockAlign); err != nil {
		e.logger.Error("free task control block", "task", ent.task.ID(), "error", err)
	}
	ent.tcb = 0
}

// sleepIfIdle halts the CPU when nothing is ready. Interrupts are disabled
// for the emptiness check so a wake cannot slip in between the check and the
// halt; EnableAndHalt re-enables them atomically with halting.
func (e *Executor) sleepIfIdle() {
	e.cpu.DisableInterrupts()
	if e.ready.IsEmpty() {
		e.halts++
		e.cpu.EnableAndHalt()
		return
	}
	e.cpu.EnableInterrupts()
}

// Run drives tasks until ctx is done. On a real machine ctx is never done and
// Run never returns. Cancelling ctx does not wake a halted CPU by itself; the
// caller must also deliver an interrupt or power the CPU off.
func (e *Executor) Run(ctx context.Context) error {
	if e.cpu == nil {
		return ErrNoCPU
	}
	for {
		e.RunReady()
		if err := ctx.Err(); err != nil {
			return err
		}
		e.sleepIfIdle()
	}
}

// Len returns the number of live tasks.
func (e *Executor) Len() int { return len(e.tasks) }

// Has reports whether the task is still live.
func (e *Executor) Has(id task.TaskID) bool {
	_, ok := e.tasks[id]
	return ok
}

// HasWaker reports whether a waker is cached for the task.
func (e *Executor) HasWaker(id task.TaskID) bool {
	_, ok := e.wakers[id]
	return ok
}

// Ready returns the number of entries on the ready queue.
func (e *Executor) Ready() int { return e.ready.Len() }

// Stats returns a snapshot of the counters. Call it from the executor's
// goroutine.
func (e *Executor) Stats() Stats {
	return Stats{
		Spawned:   e.spawned,
		Polls:     e.polls,
		Completed: e.completed,
		Wakes:     e.wakes.Load(),
		LostWakes: e.lostWakes.Load(),
		Stale:     e.stale,
		Halts:     e.halts,
	}
}
