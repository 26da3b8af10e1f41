package alloc

import (
	"fmt"

	"github.com/joshuapare/kcore/heap/region"
	"github.com/joshuapare/kcore/internal/buf"
	"github.com/joshuapare/kcore/internal/layout"
)

// BumpAllocator is a linear allocator over a single heap range. It uses a
// bump pointer for O(1) allocation and reclaims memory only collectively:
// individual deallocations just decrement a counter, and once every
// allocation has been returned the cursor goes back to the heap start.
//
// A single allocation that is never freed keeps the whole range from being
// reclaimed. That is accepted behavior for this allocator.
type BumpAllocator struct {
	mem *region.Region

	heapStart uintptr
	heapEnd   uintptr

	// next is the address where the next allocation search starts.
	// Invariant: heapStart <= next <= heapEnd.
	next uintptr

	// allocations counts live allocations.
	allocations int

	initialized bool
	stats       Stats
}

// NewBump creates an uninitialized BumpAllocator. Call Init before use.
func NewBump() *BumpAllocator {
	return &BumpAllocator{}
}

// Init implements Allocator.
func (ba *BumpAllocator) Init(mem *region.Region, start, size uintptr) error {
	if ba.initialized {
		return ErrAlreadyInitialized
	}
	end, ok := buf.AddrAdd(start, size)
	if !ok || size == 0 || (mem != nil && !mem.Contains(start, size)) {
		return fmt.Errorf("%w: [%#x, +%d)", ErrBadRange, start, size)
	}

	ba.mem = mem
	ba.heapStart = start
	ba.heapEnd = end
	// The whole range is unused at first, so the cursor starts at the bottom.
	ba.next = start
	ba.initialized = true
	return nil
}

// Alloc implements Allocator.
func (ba *BumpAllocator) Alloc(l layout.Layout) (uintptr, error) {
	ba.stats.AllocCalls++
	if !ba.initialized {
		return 0, ErrNotInitialized
	}

	allocStart, ok := layout.AlignUp(ba.next, l.Align)
	if !ok {
		return ba.fail(l)
	}
	allocEnd, ok := buf.AddrAdd(allocStart, l.Size)
	if !ok || allocEnd > ba.heapEnd {
		return ba.fail(l)
	}

	ba.next = allocEnd
	ba.allocations++
	ba.stats.BytesInUse += int64(l.Size)
	traceAlloc("bump", allocStart, l.Size, l.Align, nil)
	return allocStart, nil
}

func (ba *BumpAllocator) fail(l layout.Layout) (uintptr, error) {
	ba.stats.AllocFailures++
	traceAlloc("bump", 0, l.Size, l.Align, ErrOutOfMemory)
	return 0, ErrOutOfMemory
}

// Dealloc implements Allocator. The block itself is not reused until every
// live allocation has been returned.
func (ba *BumpAllocator) Dealloc(addr uintptr, l layout.Layout) error {
	if !ba.initialized {
		return ErrNotInitialized
	}
	// Only a zero-size allocation can sit at heapEnd.
	if addr < ba.heapStart || addr > ba.heapEnd || (addr == ba.heapEnd && l.Size != 0) {
		return fmt.Errorf("%w: %#x", ErrBadAddr, addr)
	}
	if ba.allocations == 0 {
		panic(fmt.Errorf("%w: bump dealloc with no live allocations", ErrInvariant))
	}

	ba.stats.FreeCalls++
	ba.stats.BytesInUse -= int64(l.Size)
	ba.allocations--
	if ba.allocations == 0 {
		ba.next = ba.heapStart
		ba.stats.Resets++
	}
	traceFree("bump", addr, l.Size, l.Align)
	return nil
}

// Allocations returns the number of live allocations.
func (ba *BumpAllocator) Allocations() int { return ba.allocations }

// Next returns the current bump cursor.
func (ba *BumpAllocator) Next() uintptr { return ba.next }

// HeapStart returns the first address of the managed range.
func (ba *BumpAllocator) HeapStart() uintptr { return ba.heapStart }

// HeapEnd returns the first address past the managed range.
func (ba *BumpAllocator) HeapEnd() uintptr { return ba.heapEnd }

// GetStats returns a copy of the allocator statistics.
func (ba *BumpAllocator) GetStats() Stats { return ba.stats }

// Compile-time interface check
var _ Allocator = (*BumpAllocator)(nil)
