package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kcore/heap"
	"github.com/joshuapare/kcore/heap/alloc"
	"github.com/joshuapare/kcore/heap/region"
	"github.com/joshuapare/kcore/internal/cpu"
	"github.com/joshuapare/kcore/task"
)

// ============================================================================
// Test Helpers
// ============================================================================

// countingFuture returns the scripted results in order and counts polls.
type countingFuture struct {
	polls   int
	results []task.Poll
	onPoll  func(cx *task.Context, n int)
}

func (f *countingFuture) Poll(cx *task.Context) task.Poll {
	f.polls++
	if f.onPoll != nil {
		f.onPoll(cx, f.polls)
	}
	if f.polls > len(f.results) {
		return task.Ready
	}
	return f.results[f.polls-1]
}

// startRun runs the executor on its own goroutine and returns a function that
// stops it and reports Run's error.
func startRun(t *testing.T, e *Executor, sim *cpu.Sim) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	return func() error {
		cancel()
		sim.Close()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("executor did not stop")
			return nil
		}
	}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// ============================================================================
// Scheduling properties
// ============================================================================

// TestExecutor_StuckTaskPolledOnce tests that a pending task that never wakes
// itself is not polled again.
func TestExecutor_StuckTaskPolledOnce(t *testing.T) {
	e := New(Options{})
	f := &countingFuture{results: []task.Poll{task.Pending, task.Pending}}
	tk := task.New(f)
	require.NoError(t, e.Spawn(tk))

	e.RunReady()
	e.RunReady()
	assert.Equal(t, 1, f.polls)
	assert.True(t, e.Has(tk.ID()), "a stuck task stays in the task map")
	assert.True(t, e.HasWaker(tk.ID()))
	assert.Equal(t, 0, e.Ready())
}

// TestExecutor_SelfWakeRepolled tests that waking from inside poll requeues
// the task within the same RunReady pass.
func TestExecutor_SelfWakeRepolled(t *testing.T) {
	e := New(Options{})
	f := &countingFuture{
		results: []task.Poll{task.Pending, task.Ready},
		onPoll: func(cx *task.Context, n int) {
			if n == 1 {
				cx.Waker().Wake()
			}
		},
	}
	tk := task.New(f)
	require.NoError(t, e.Spawn(tk))

	e.RunReady()
	assert.Equal(t, 2, f.polls)
	assert.False(t, e.Has(tk.ID()))
	assert.Equal(t, uint64(1), e.Stats().Wakes)
}

// TestExecutor_SelfWakeBeforeIdle tests the same property through Run: the
// task completes without the CPU ever halting.
func TestExecutor_SelfWakeBeforeIdle(t *testing.T) {
	sim := cpu.NewSim()
	e := New(Options{CPU: sim})
	completed := make(chan struct{})
	f := &countingFuture{
		results: []task.Poll{task.Pending, task.Pending, task.Ready},
		onPoll: func(cx *task.Context, n int) {
			if n < 3 {
				cx.Waker().Wake()
				return
			}
			close(completed)
		},
	}
	require.NoError(t, e.Spawn(task.New(f)))

	// Halts are only counted on the executor goroutine, so check polls from
	// the simulated CPU instead: nothing has halted when the task finishes.
	stop := startRun(t, e, sim)
	waitFor(t, completed, "task completion")
	haltsAtCompletion := sim.Stats().Halts
	require.ErrorIs(t, stop(), context.Canceled)

	assert.Equal(t, 3, f.polls)
	assert.LessOrEqual(t, haltsAtCompletion, uint64(1))
	assert.Equal(t, 0, e.Len())
}

// TestExecutor_ExternalWakeEndToEnd tests a task that completes only after an
// interrupt handler wakes it.
func TestExecutor_ExternalWakeEndToEnd(t *testing.T) {
	sim := cpu.NewSim()
	e := New(Options{CPU: sim})

	var captured atomic.Pointer[task.Waker]
	var signalled atomic.Bool
	firstPoll := make(chan struct{})
	completed := make(chan struct{})

	f := &countingFuture{
		results: []task.Poll{task.Pending},
		onPoll: func(cx *task.Context, n int) {
			switch n {
			case 1:
				captured.Store(cx.Waker())
				close(firstPoll)
			case 2:
				assert.True(t, signalled.Load(), "second poll only after the wake")
				close(completed)
			}
		},
	}
	tk := task.New(f)
	require.NoError(t, e.Spawn(tk))

	sim.Handle(cpu.VectorKeyboard, func(cpu.Vector) {
		signalled.Store(true)
		captured.Load().Wake()
	})

	stop := startRun(t, e, sim)
	waitFor(t, firstPoll, "first poll")
	sim.Raise(cpu.VectorKeyboard)
	waitFor(t, completed, "second poll")
	require.ErrorIs(t, stop(), context.Canceled)

	assert.Equal(t, 2, f.polls)
	assert.False(t, e.Has(tk.ID()), "completed task leaves the task map")
	assert.False(t, e.HasWaker(tk.ID()), "completed task leaves the waker cache")
	stats := e.Stats()
	assert.Equal(t, uint64(2), stats.Polls)
	assert.Equal(t, uint64(1), stats.Completed)
	assert.GreaterOrEqual(t, stats.Halts, uint64(1))
}

// TestExecutor_WakeAfterCompletion tests that a stale waker is a no-op.
func TestExecutor_WakeAfterCompletion(t *testing.T) {
	e := New(Options{})
	var kept *task.Waker
	tk := task.New(task.FutureFunc(func(cx *task.Context) task.Poll {
		kept = cx.Waker()
		return task.Ready
	}))
	require.NoError(t, e.Spawn(tk))
	e.RunReady()

	require.NotNil(t, kept)
	kept.Wake()
	kept.Wake()
	assert.Equal(t, 0, e.Ready())
	assert.NotPanics(t, e.RunReady)
}

// TestExecutor_CompleteWhileQueued tests the stale queue entry left by a task
// that woke itself and then completed in the same poll.
func TestExecutor_CompleteWhileQueued(t *testing.T) {
	e := New(Options{})
	tk := task.New(task.FutureFunc(func(cx *task.Context) task.Poll {
		cx.Waker().Wake()
		return task.Ready
	}))
	require.NoError(t, e.Spawn(tk))

	require.NotPanics(t, e.RunReady)
	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.Polls)
	assert.Equal(t, uint64(1), stats.Stale)
	assert.Empty(t, e.retired)
}

func TestExecutor_MissingTaskPanics(t *testing.T) {
	e := New(Options{})
	require.True(t, e.ready.Push(task.NewTaskID()))

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrInvariant))
	}()
	e.RunReady()
}

func TestExecutor_DuplicateSpawnPanics(t *testing.T) {
	e := New(Options{})
	tk := task.New(task.FutureFunc(func(*task.Context) task.Poll { return task.Pending }))
	require.NoError(t, e.Spawn(tk))
	assert.Panics(t, func() { _ = e.Spawn(tk) })
}

func TestExecutor_ReadyQueueFull(t *testing.T) {
	e := New(Options{ReadyCapacity: 2})
	pending := func(*task.Context) task.Poll { return task.Pending }

	require.NoError(t, e.Spawn(task.New(task.FutureFunc(pending))))
	require.NoError(t, e.Spawn(task.New(task.FutureFunc(pending))))
	err := e.Spawn(task.New(task.FutureFunc(pending)))
	require.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 2, e.Len())
}

// TestExecutor_LostWakeCounted tests that a wake with a full ready queue is
// dropped and counted, and that the task can still be woken later.
func TestExecutor_LostWakeCounted(t *testing.T) {
	e := New(Options{ReadyCapacity: 1})
	var w *task.Waker
	tk := task.New(task.FutureFunc(func(cx *task.Context) task.Poll {
		w = cx.Waker()
		return task.Pending
	}))
	require.NoError(t, e.Spawn(tk))
	e.RunReady()

	filler := task.New(task.FutureFunc(func(*task.Context) task.Poll { return task.Ready }))
	require.NoError(t, e.Spawn(filler))
	w.Wake()
	assert.Equal(t, uint64(1), e.Stats().LostWakes)

	e.RunReady()
	w.Wake()
	assert.Equal(t, 1, e.Ready())
}

func TestExecutor_RunWithoutCPU(t *testing.T) {
	require.ErrorIs(t, New(Options{}).Run(context.Background()), ErrNoCPU)
}

// TestExecutor_IdleHalts tests that an idle executor halts and wakes on an
// interrupt.
func TestExecutor_IdleHalts(t *testing.T) {
	sim := cpu.NewSim()
	e := New(Options{CPU: sim})
	ticked := make(chan struct{}, 1)
	sim.Handle(cpu.VectorTimer, func(cpu.Vector) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	})

	stop := startRun(t, e, sim)
	require.Eventually(t, func() bool { return sim.Stats().Halts >= 1 }, 5*time.Second, time.Millisecond)
	sim.Raise(cpu.VectorTimer)
	waitFor(t, ticked, "timer interrupt")
	require.ErrorIs(t, stop(), context.Canceled)
	assert.GreaterOrEqual(t, e.Stats().Halts, uint64(1))
}

// ============================================================================
// Task control blocks
// ============================================================================

func newExecutorHeap(t *testing.T, strategy heap.Strategy, size int) *heap.Heap {
	t.Helper()
	mem, err := region.Map(heap.HeapStart, size)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Unmap() })
	h, err := heap.New(heap.Options{Strategy: strategy})
	require.NoError(t, err)
	require.NoError(t, h.Init(mem, heap.HeapStart, uintptr(size)))
	return h
}

func TestExecutor_ControlBlockLifecycle(t *testing.T) {
	h := newExecutorHeap(t, heap.StrategyFixed, int(heap.HeapSize))
	e := New(Options{Heap: h})

	done := false
	tk := task.New(task.FutureFunc(func(*task.Context) task.Poll {
		if done {
			return task.Ready
		}
		return task.Pending
	}))
	require.NoError(t, e.Spawn(tk))
	assert.Equal(t, int64(ControlBlockSize), h.Stats().Alloc.BytesInUse)

	e.RunReady()
	assert.Equal(t, int64(ControlBlockSize), h.Stats().Alloc.BytesInUse, "suspended task keeps its block")

	done = true
	e.wakers[tk.ID()].Wake()
	e.RunReady()
	assert.Equal(t, int64(0), h.Stats().Alloc.BytesInUse)
}

func TestExecutor_SpawnOutOfMemory(t *testing.T) {
	h := newExecutorHeap(t, heap.StrategyBump, 128)
	e := New(Options{Heap: h})
	pending := func(*task.Context) task.Poll { return task.Pending }

	require.NoError(t, e.Spawn(task.New(task.FutureFunc(pending))))
	require.NoError(t, e.Spawn(task.New(task.FutureFunc(pending))))
	err := e.Spawn(task.New(task.FutureFunc(pending)))
	require.ErrorIs(t, err, alloc.ErrOutOfMemory)
	assert.Equal(t, 2, e.Len())
	assert.Equal(t, 2, e.Ready())
}

// ============================================================================
// Simple executor
// ============================================================================

func TestSimple_RunsAllToCompletion(t *testing.T) {
	s := NewSimple()
	var order []int
	for i := range 3 {
		remaining := i + 1
		s.Spawn(task.New(task.FutureFunc(func(*task.Context) task.Poll {
			order = append(order, i)
			remaining--
			if remaining > 0 {
				return task.Pending
			}
			return task.Ready
		})))
	}
	s.Run()

	assert.Equal(t, []int{0, 1, 2, 1, 2, 2}, order, "pending tasks go to the back of the queue")
	assert.Equal(t, uint64(6), s.Polls())
}
