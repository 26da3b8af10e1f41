// Package kernel wires the heap, the executor and the keyboard bridge into a
// bootable hosted kernel running on a simulated CPU.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/joshuapare/kcore/console"
	"github.com/joshuapare/kcore/heap"
	"github.com/joshuapare/kcore/heap/alloc"
	"github.com/joshuapare/kcore/heap/region"
	"github.com/joshuapare/kcore/internal/cpu"
	"github.com/joshuapare/kcore/task"
	"github.com/joshuapare/kcore/task/executor"
	"github.com/joshuapare/kcore/task/keyboard"
)

// ErrShutdown indicates use of a kernel after Shutdown.
var ErrShutdown = errors.New("kernel: shut down")

// Options carries host-side collaborators for Boot.
type Options struct {
	// Logger receives kernel diagnostics (default: discard).
	Logger *slog.Logger

	// Sink, when set, receives everything printed to the screen as well.
	Sink console.Sink
}

// Kernel is a booted kernel.
type Kernel struct {
	cfg    Config
	logger *slog.Logger

	CPU       *cpu.Sim
	Pages     *PageTable
	Frames    *BootInfoFrameAllocator
	Heap      *heap.Heap
	Scancodes *keyboard.ScancodeQueue
	Executor  *executor.Executor
	Screen    *console.TextBuffer

	mem  *region.Region
	sink console.Sink
	echo *keyboard.EchoTask

	ticks    atomic.Uint64
	shutdown atomic.Bool
}

// Boot brings up a kernel: it maps and initializes the heap, prepares the
// scancode queue and the executor, and installs the interrupt handlers.
// Interrupts stay disabled until Run.
func Boot(cfg Config, opts Options) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	alloc.SetLogger(logger)

	strategy, err := heap.ParseStrategy(cfg.Heap.Strategy)
	if err != nil {
		return nil, err
	}

	k := &Kernel{
		cfg:       cfg,
		logger:    logger,
		CPU:       cpu.NewSim(),
		Pages:     NewPageTable(),
		Frames:    NewBootInfoFrameAllocator(MemoryMapFromConfig(cfg.Memory)),
		Scancodes: keyboard.NewScancodeQueue(logger),
		Screen:    console.NewTextBuffer(),
	}
	k.sink = k.Screen
	if opts.Sink != nil {
		k.sink = console.Tee(k.Screen, opts.Sink)
	}

	start, size := uintptr(cfg.Heap.Start), uintptr(cfg.Heap.Size)
	k.mem, err = region.Map(start, int(size))
	if err != nil {
		return nil, fmt.Errorf("kernel: map heap: %w", err)
	}

	k.Heap, err = heap.New(heap.Options{Strategy: strategy, CPU: k.CPU})
	if err != nil {
		_ = k.mem.Unmap()
		return nil, err
	}
	if err := heap.InitHeap(k.Heap, k.Pages, k.Frames, k.mem, start, size); err != nil {
		_ = k.mem.Unmap()
		return nil, fmt.Errorf("kernel: heap initialization failed: %w", err)
	}

	k.Executor = executor.New(executor.Options{
		CPU:           k.CPU,
		Heap:          k.Heap,
		ReadyCapacity: cfg.Executor.ReadyCapacity,
		Logger:        logger,
	})

	k.CPU.Handle(cpu.VectorTimer, k.timerInterrupt)
	k.CPU.Handle(cpu.VectorKeyboard, k.keyboardInterrupt)

	logger.Info("kernel booted",
		"heap_start", fmt.Sprintf("%#x", start),
		"heap_size", size,
		"strategy", strategy,
		"pages", k.Pages.Mapped(),
		"frames", k.Frames.Allocated())
	k.sink.Print("Hello World!\n")
	return k, nil
}

// keyboardInterrupt reads the scancode latched in the controller's data port
// and queues it. It must not block or allocate.
func (k *Kernel) keyboardInterrupt(cpu.Vector) {
	b := k.CPU.PortReadByte(cpu.KeyboardDataPort)
	_ = k.Scancodes.AddScancode(b)
}

func (k *Kernel) timerInterrupt(cpu.Vector) {
	k.ticks.Add(1)
}

// Ticks returns the number of timer interrupts serviced.
func (k *Kernel) Ticks() uint64 { return k.ticks.Load() }

// Config returns the boot configuration.
func (k *Kernel) Config() Config { return k.cfg }

// Print writes to the screen (and the host sink, if any).
func (k *Kernel) Print(s string) { k.sink.Print(s) }

// Spawn wraps f in a task and hands it to the executor.
func (k *Kernel) Spawn(f task.Future) (task.TaskID, error) {
	if k.shutdown.Load() {
		return 0, ErrShutdown
	}
	t := task.New(f)
	return t.ID(), k.Executor.Spawn(t)
}

// SpawnEcho starts the keyboard echo task. It creates the queue's only
// stream, so it can be called once.
func (k *Kernel) SpawnEcho() (task.TaskID, error) {
	stream := keyboard.NewScancodeStream(k.Scancodes, k.cfg.Keyboard.QueueCapacity)
	k.echo = keyboard.NewEchoTask(stream, k.sink, k.cfg.HotkeyMap())
	return k.Spawn(k.echo)
}

// KeysEchoed returns the number of keys the echo task has decoded.
func (k *Kernel) KeysEchoed() uint64 {
	if k.echo == nil {
		return 0
	}
	return k.echo.Keys()
}

// Run drives the executor until ctx is done. Cancelling ctx powers the CPU
// off so a halted executor wakes up and returns; the kernel cannot be run
// again afterwards.
func (k *Kernel) Run(ctx context.Context) error {
	if k.shutdown.Load() {
		return ErrShutdown
	}
	stop := context.AfterFunc(ctx, k.CPU.Close)
	defer stop()
	return k.Executor.Run(ctx)
}

// Press models the keyboard latching scancode b and raising its interrupt.
// While the scancode queue is full it waits for the consumer to make room, so
// a fast typist is slowed down instead of losing keys. After injecting it
// waits until the keyboard interrupt has been serviced, since the controller
// holds only one byte; without that, a second press would overwrite the first.
// Presses must come from one goroutine.
func (k *Kernel) Press(ctx context.Context, b byte) error {
	for k.Scancodes.Initialized() && k.Scancodes.Len() >= k.Scancodes.Cap() {
		if err := k.pressWait(ctx); err != nil {
			return err
		}
	}

	before := k.CPU.DeliveredTo(cpu.VectorKeyboard)
	k.CPU.Inject(cpu.VectorKeyboard, cpu.KeyboardDataPort, b)
	for k.CPU.DeliveredTo(cpu.VectorKeyboard) == before {
		if err := k.pressWait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (k *Kernel) pressWait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if k.shutdown.Load() {
		return ErrShutdown
	}
	time.Sleep(50 * time.Microsecond)
	return nil
}

// Type presses the scancodes for s.
func (k *Kernel) Type(ctx context.Context, s string) error {
	return k.PressAll(ctx, keyboard.Encode(s))
}

// PressAll presses each scancode in order.
func (k *Kernel) PressAll(ctx context.Context, codes []byte) error {
	for _, b := range codes {
		if err := k.Press(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// Tick raises one timer interrupt.
func (k *Kernel) Tick() {
	k.CPU.Raise(cpu.VectorTimer)
}

// Shutdown powers the CPU off and releases the heap memory. The kernel must
// not be running.
func (k *Kernel) Shutdown() error {
	if !k.shutdown.CompareAndSwap(false, true) {
		return ErrShutdown
	}
	k.CPU.Close()
	k.logger.Info("kernel shut down", "keys", k.KeysEchoed(), "ticks", k.Ticks())
	return k.mem.Unmap()
}
