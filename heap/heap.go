// Package heap is the kernel heap: a locked allocator over a mapped virtual
// range, plus small typed helpers that exercise it.
package heap

import (
	"fmt"
	"strings"

	"github.com/joshuapare/kcore/heap/alloc"
	"github.com/joshuapare/kcore/heap/region"
	"github.com/joshuapare/kcore/internal/cpu"
	"github.com/joshuapare/kcore/internal/layout"
)

const (
	// HeapStart is the virtual address the kernel heap is mapped at.
	HeapStart uintptr = 0x4444_4444_0000

	// HeapSize is the size of the kernel heap.
	HeapSize uintptr = 100 * 1024

	// PageSize is the size of one page of the heap mapping.
	PageSize uintptr = 4096
)

// Strategy selects the allocator behind the heap.
type Strategy string

const (
	// StrategyBump uses a BumpAllocator.
	StrategyBump Strategy = "bump"

	// StrategyFixed uses a FixedSizeBlockAllocator with a linked-list fallback.
	StrategyFixed Strategy = "fixed"
)

// ParseStrategy parses a strategy name, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyBump:
		return StrategyBump, nil
	case StrategyFixed, "":
		return StrategyFixed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

// Options configures a Heap.
type Options struct {
	// Strategy picks the allocator (default StrategyFixed).
	Strategy Strategy

	// SizeClasses configures the fixed-size-block allocator (nil uses
	// alloc.DefaultConfig). Ignored for StrategyBump.
	SizeClasses *alloc.SizeClassConfig

	// CPU, when set, has interrupts disabled around every allocator call.
	CPU cpu.CPU
}

// Heap is the kernel heap. It must be initialized exactly once with Init;
// every operation before that fails with alloc.ErrNotInitialized.
type Heap struct {
	strategy Strategy
	inner    alloc.Allocator
	locked   *Locked[alloc.Allocator]
	mem      *region.Region

	start uintptr
	size  uintptr
}

// New creates an uninitialized heap.
func New(opts Options) (*Heap, error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyFixed
	}

	var inner alloc.Allocator
	switch strategy {
	case StrategyBump:
		inner = alloc.NewBump()
	case StrategyFixed:
		fa, err := alloc.NewFixedSizeBlock(opts.SizeClasses)
		if err != nil {
			return nil, err
		}
		inner = fa
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	return &Heap{
		strategy: strategy,
		inner:    inner,
		locked:   NewLocked(inner, opts.CPU),
	}, nil
}

// Init hands the range [start, start+size) of mem to the allocator. A second
// call fails with alloc.ErrAlreadyInitialized.
func (h *Heap) Init(mem *region.Region, start, size uintptr) error {
	if err := h.locked.Init(mem, start, size); err != nil {
		return err
	}
	h.mem = mem
	h.start = start
	h.size = size
	return nil
}

// Alloc allocates size bytes aligned to align.
func (h *Heap) Alloc(size, align uintptr) (uintptr, error) {
	l, err := layout.New(size, align)
	if err != nil {
		return 0, err
	}
	return h.locked.Alloc(l)
}

// Dealloc frees a block obtained from Alloc with the same size and align.
func (h *Heap) Dealloc(addr, size, align uintptr) error {
	l, err := layout.New(size, align)
	if err != nil {
		return err
	}
	return h.locked.Dealloc(addr, l)
}

// Realloc moves the block at addr to a new block of newSize bytes with the
// same alignment. The first min(oldSize, newSize) bytes are preserved. On
// failure the old block is left untouched.
func (h *Heap) Realloc(addr, oldSize, align, newSize uintptr) (uintptr, error) {
	newAddr, err := h.Alloc(newSize, align)
	if err != nil {
		return 0, err
	}
	if n := min(oldSize, newSize); n > 0 {
		if err := h.mem.Copy(newAddr, addr, n); err != nil {
			_ = h.Dealloc(newAddr, newSize, align)
			return 0, fmt.Errorf("heap: realloc copy: %w", err)
		}
	}
	if err := h.Dealloc(addr, oldSize, align); err != nil {
		_ = h.Dealloc(newAddr, newSize, align)
		return 0, err
	}
	return newAddr, nil
}

// Memory returns the backing region, or nil before Init.
func (h *Heap) Memory() *region.Region { return h.mem }

// Strategy returns the allocator strategy.
func (h *Heap) Strategy() Strategy { return h.strategy }

// Start returns the first heap address.
func (h *Heap) Start() uintptr { return h.start }

// Size returns the heap size in bytes.
func (h *Heap) Size() uintptr { return h.size }

// ClassStats describes one size-class free list.
type ClassStats struct {
	Size uintptr
	Free int
}

// Stats is a snapshot of heap usage.
type Stats struct {
	Strategy Strategy
	Start    uintptr
	Size     uintptr

	Alloc alloc.Stats

	// FallbackFree is the number of bytes in fallback holes (fixed only).
	FallbackFree uintptr
	// FallbackHoles is the number of fallback holes (fixed only).
	FallbackHoles int
	// Classes lists the free blocks held by each size class (fixed only).
	Classes []ClassStats

	// LiveAllocations is the bump allocation counter (bump only).
	LiveAllocations int
}

// Stats returns a consistent snapshot of the allocator state.
func (h *Heap) Stats() Stats {
	s := Stats{Strategy: h.strategy, Start: h.start, Size: h.size}
	h.locked.With(func(a alloc.Allocator) {
		switch a := a.(type) {
		case *alloc.BumpAllocator:
			s.Alloc = a.GetStats()
			s.LiveAllocations = a.Allocations()
		case *alloc.FixedSizeBlockAllocator:
			s.Alloc = a.GetStats()
			s.FallbackFree = a.Fallback().Free()
			s.FallbackHoles = len(a.Fallback().Holes())
			for i := range a.NumClasses() {
				s.Classes = append(s.Classes, ClassStats{Size: a.ClassSize(i), Free: a.ListLen(i)})
			}
		}
	})
	return s
}
