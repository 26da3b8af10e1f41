package kernel

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kcore/console"
	"github.com/joshuapare/kcore/heap"
	"github.com/joshuapare/kcore/task"
	"github.com/joshuapare/kcore/task/keyboard"
)

func bootTest(t *testing.T, cfg Config, opts Options) *Kernel {
	t.Helper()
	k, err := Boot(cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = k.Shutdown() })
	return k
}

// runKernel starts k.Run and returns a stop function reporting Run's error.
func runKernel(t *testing.T, k *Kernel) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- k.Run(ctx) }()
	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("kernel did not stop")
			return nil
		}
	}
}

func TestBoot_MapsAndInitializesHeap(t *testing.T) {
	k := bootTest(t, DefaultConfig(), Options{})

	pages := int(heap.HeapSize / heap.PageSize)
	assert.Equal(t, pages, k.Pages.Mapped())
	assert.Equal(t, pages+3, k.Frames.Allocated(), "one frame per page plus three page tables")
	assert.Equal(t, "Hello World!", k.Screen.Row(console.BufferHeight-2))
	assert.False(t, k.CPU.InterruptsEnabled(), "interrupts stay off until Run")

	addr, err := k.Heap.Alloc(64, 8)
	require.NoError(t, err)
	_, ok := k.Pages.Translate(addr)
	assert.True(t, ok, "heap addresses are mapped")
}

func TestBoot_BumpStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Heap.Strategy = "bump"
	k := bootTest(t, cfg, Options{})
	assert.Equal(t, heap.StrategyBump, k.Heap.Strategy())
}

func TestBoot_NotEnoughFrames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Memory.Regions = []MemoryRegionConfig{{Start: 0x10_0000, End: 0x10_4000, Kind: "usable"}}

	_, err := Boot(cfg, Options{})
	require.ErrorIs(t, err, heap.ErrFrameAllocationFailed)
	assert.Contains(t, err.Error(), "heap initialization failed")
}

func TestBoot_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Heap.Size = 0
	_, err := Boot(cfg, Options{})
	require.ErrorIs(t, err, ErrBadConfig)
}

// TestKernel_EchoEndToEnd types through the keyboard interrupt path and checks
// the echo task's output.
func TestKernel_EchoEndToEnd(t *testing.T) {
	var host bytes.Buffer
	k := bootTest(t, DefaultConfig(), Options{Sink: console.NewTerminalSinkWriter(&host, false)})
	_, err := k.SpawnEcho()
	require.NoError(t, err)

	stop := runKernel(t, k)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, k.Type(ctx, "hi kernel"))
	require.Eventually(t, func() bool { return k.KeysEchoed() == 9 }, 5*time.Second, time.Millisecond)
	require.ErrorIs(t, stop(), context.Canceled)

	assert.Equal(t, "hi kernel", k.Screen.Row(console.BufferHeight-1))
	assert.Equal(t, "Hello World!\nhi kernel", host.String())
	assert.Equal(t, uint64(18), k.Scancodes.Stats().Pushed, "make and break codes")
	assert.Equal(t, 1, k.Executor.Len(), "the echo task never completes")
}

func TestKernel_EscapeHotkey(t *testing.T) {
	k := bootTest(t, DefaultConfig(), Options{})
	_, err := k.SpawnEcho()
	require.NoError(t, err)

	stop := runKernel(t, k)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, k.PressAll(ctx, keyboard.EncodeKey(keyboard.KeyEscape)))
	require.Eventually(t, func() bool { return k.KeysEchoed() == 1 }, 5*time.Second, time.Millisecond)
	require.ErrorIs(t, stop(), context.Canceled)

	assert.True(t, strings.Contains(k.Screen.String(), "kcore: heap + cooperative executor"))
	assert.Equal(t, console.NewColorCode(console.Black, console.White), k.Screen.Cell(console.BufferHeight-2, 1).Color)
}

func TestKernel_TypeLongLineLosesNothing(t *testing.T) {
	k := bootTest(t, DefaultConfig(), Options{})
	_, err := k.SpawnEcho()
	require.NoError(t, err)

	stop := runKernel(t, k)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	line := strings.Repeat("abcdefghij", 100)
	require.NoError(t, k.Type(ctx, line))
	require.Eventually(t, func() bool { return k.KeysEchoed() == uint64(len(line)) }, 10*time.Second, time.Millisecond)
	require.ErrorIs(t, stop(), context.Canceled)

	st := k.Scancodes.Stats()
	assert.Equal(t, uint64(0), st.Dropped)
	assert.Equal(t, uint64(2*len(line)), st.Pushed)
}

func TestKernel_PressWaitsForRoom(t *testing.T) {
	k := bootTest(t, DefaultConfig(), Options{})
	_, err := k.SpawnEcho()
	require.NoError(t, err)
	// Nothing consumes the queue.
	k.CPU.EnableInterrupts()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < k.Scancodes.Cap(); i++ {
		require.NoError(t, k.Press(ctx, 0x1E))
	}

	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	require.ErrorIs(t, k.Press(short, 0x1E), context.DeadlineExceeded)
	assert.Equal(t, uint64(0), k.Scancodes.Stats().Dropped)
	assert.Equal(t, uint64(k.Scancodes.Cap()), k.Scancodes.Stats().Pushed)
}

func TestKernel_ScancodeBeforeStreamIsLost(t *testing.T) {
	k := bootTest(t, DefaultConfig(), Options{})
	k.CPU.EnableInterrupts()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, k.Press(ctx, 0x1E))
	assert.Equal(t, uint64(1), k.Scancodes.Stats().Lost)
}

func TestKernel_SpawnRunsTasks(t *testing.T) {
	k := bootTest(t, DefaultConfig(), Options{})
	done := make(chan struct{})
	polls := 0
	_, err := k.Spawn(task.FutureFunc(func(cx *task.Context) task.Poll {
		polls++
		if polls < 3 {
			cx.Waker().Wake()
			return task.Pending
		}
		close(done)
		return task.Ready
	}))
	require.NoError(t, err)

	stop := runKernel(t, k)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not complete")
	}
	require.ErrorIs(t, stop(), context.Canceled)
	assert.Equal(t, 0, k.Executor.Len())
	assert.Equal(t, int64(0), k.Heap.Stats().Alloc.BytesInUse, "task control block released")
}

func TestKernel_TimerTicks(t *testing.T) {
	k := bootTest(t, DefaultConfig(), Options{})
	k.Tick()
	assert.Equal(t, uint64(0), k.Ticks(), "deferred while interrupts are off")
	k.CPU.EnableInterrupts()
	assert.Equal(t, uint64(1), k.Ticks())
}

func TestKernel_Shutdown(t *testing.T) {
	k, err := Boot(DefaultConfig(), Options{})
	require.NoError(t, err)

	require.NoError(t, k.Shutdown())
	require.ErrorIs(t, k.Shutdown(), ErrShutdown)
	_, err = k.Spawn(task.FutureFunc(func(*task.Context) task.Poll { return task.Ready }))
	require.ErrorIs(t, err, ErrShutdown)
	require.ErrorIs(t, k.Run(context.Background()), ErrShutdown)
}
