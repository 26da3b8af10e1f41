package alloc

import (
	"fmt"

	"github.com/joshuapare/kcore/heap/region"
	"github.com/joshuapare/kcore/internal/buf"
	"github.com/joshuapare/kcore/internal/layout"
)

const (
	// holeHeaderSize is the in-place node written at the start of every hole:
	// one word for the hole size and one for the address of the next hole.
	holeHeaderSize = 2 * buf.WordSize

	// holeAlign is the alignment of every hole and of every allocation size.
	holeAlign = buf.WordSize

	// minHoleSize is the smallest extent that can be tracked as a hole.
	minHoleSize = holeHeaderSize
)

// Hole describes one free extent of a LinkedListAllocator.
type Hole struct {
	Addr uintptr
	Size uintptr
}

// LinkedListAllocator is a general-purpose first-fit allocator. Free memory is
// kept as an address-ordered singly linked list of holes whose nodes live
// inside the holes themselves. Deallocation inserts the block back in address
// order and merges it with adjacent holes.
//
// Invariant: holes are sorted by address, never overlap, and are never
// adjacent (adjacent holes are merged).
type LinkedListAllocator struct {
	mem *region.Region

	bottom uintptr
	top    uintptr

	// first is the address of the lowest hole, or 0 when the heap is full.
	first uintptr
	free  uintptr

	initialized bool
	stats       Stats
}

// NewLinkedList creates an uninitialized LinkedListAllocator.
func NewLinkedList() *LinkedListAllocator {
	return &LinkedListAllocator{}
}

// Init implements Allocator. The range is shrunk to holeAlign boundaries.
func (la *LinkedListAllocator) Init(mem *region.Region, start, size uintptr) error {
	if la.initialized {
		return ErrAlreadyInitialized
	}
	if mem == nil || !mem.Contains(start, size) {
		return fmt.Errorf("%w: [%#x, +%d) outside backing memory", ErrBadRange, start, size)
	}

	bottom, ok := layout.AlignUp(start, holeAlign)
	top := layout.AlignDown(start+size, holeAlign)
	if !ok || bottom == 0 || top <= bottom || top-bottom < minHoleSize {
		return fmt.Errorf("%w: [%#x, +%d) too small", ErrBadRange, start, size)
	}

	la.mem = mem
	la.bottom = bottom
	la.top = top
	la.writeHole(bottom, top-bottom, 0)
	la.first = bottom
	la.free = top - bottom
	la.initialized = true
	return nil
}

// adjust returns the extent actually reserved for l: at least one hole
// header, a multiple of holeAlign, and aligned to at least holeAlign.
func adjust(l layout.Layout) (size, align uintptr, ok bool) {
	size, ok = layout.AlignUp(max(l.Size, minHoleSize), holeAlign)
	return size, max(l.Align, holeAlign), ok
}

// Alloc implements Allocator using the first hole that fits.
func (la *LinkedListAllocator) Alloc(l layout.Layout) (uintptr, error) {
	la.stats.AllocCalls++
	if !la.initialized {
		return 0, ErrNotInitialized
	}
	size, align, ok := adjust(l)
	if !ok {
		return la.fail(l)
	}

	var prev uintptr
	for cur := la.first; cur != 0; prev, cur = cur, la.holeNext(cur) {
		start, ok := la.fit(cur, size, align)
		if !ok {
			continue
		}
		la.carve(prev, cur, start, size)
		la.free -= size
		la.stats.BytesInUse += int64(l.Size)
		traceAlloc("linked_list", start, l.Size, l.Align, nil)
		return start, nil
	}
	return la.fail(l)
}

// fit returns the aligned start of a size-byte allocation inside the hole at
// cur. Any front padding must be large enough to remain a hole, and any back
// padding must either be zero or large enough to remain a hole.
func (la *LinkedListAllocator) fit(cur, size, align uintptr) (uintptr, bool) {
	holeEnd := cur + la.holeSize(cur)

	start, ok := layout.AlignUp(cur, align)
	if ok && start != cur {
		start, ok = layout.AlignUp(cur+minHoleSize, align)
	}
	if !ok {
		return 0, false
	}
	end, ok := buf.AddrAdd(start, size)
	if !ok || end > holeEnd {
		return 0, false
	}
	if back := holeEnd - end; back != 0 && back < minHoleSize {
		return 0, false
	}
	return start, true
}

// carve removes [start, start+size) from the hole at cur, leaving the front
// and back padding (if any) as holes in its place.
func (la *LinkedListAllocator) carve(prev, cur, start, size uintptr) {
	holeEnd := cur + la.holeSize(cur)
	end := start + size

	replacement := la.holeNext(cur)
	if end < holeEnd {
		la.writeHole(end, holeEnd-end, replacement)
		replacement = end
	}
	if start != cur {
		la.writeHole(cur, start-cur, replacement)
		return
	}
	la.link(prev, replacement)
}

func (la *LinkedListAllocator) fail(l layout.Layout) (uintptr, error) {
	la.stats.AllocFailures++
	traceAlloc("linked_list", 0, l.Size, l.Align, ErrOutOfMemory)
	return 0, ErrOutOfMemory
}

// Dealloc implements Allocator. The block is inserted in address order and
// merged with the holes directly before and after it.
func (la *LinkedListAllocator) Dealloc(addr uintptr, l layout.Layout) error {
	if !la.initialized {
		return ErrNotInitialized
	}
	size, _, ok := adjust(l)
	end, endOK := buf.AddrAdd(addr, size)
	if !ok || !endOK || addr < la.bottom || end > la.top || addr%holeAlign != 0 {
		return fmt.Errorf("%w: %#x (%s)", ErrBadAddr, addr, l)
	}
	la.stats.FreeCalls++

	var prev uintptr
	cur := la.first
	for cur != 0 && cur < addr {
		prev, cur = cur, la.holeNext(cur)
	}

	if prev != 0 && prev+la.holeSize(prev) > addr {
		panic(fmt.Errorf("%w: block %#x overlaps free hole %#x", ErrInvariant, addr, prev))
	}
	if cur != 0 && end > cur {
		panic(fmt.Errorf("%w: block %#x overlaps free hole %#x", ErrInvariant, addr, cur))
	}

	holeSize, next := size, cur
	if cur != 0 && end == cur {
		holeSize += la.holeSize(cur)
		next = la.holeNext(cur)
	}
	if prev != 0 && prev+la.holeSize(prev) == addr {
		la.writeHole(prev, la.holeSize(prev)+holeSize, next)
	} else {
		la.writeHole(addr, holeSize, next)
		la.link(prev, addr)
	}

	la.free += size
	la.stats.BytesInUse -= int64(l.Size)
	traceFree("linked_list", addr, l.Size, l.Align)
	return nil
}

// Holes returns the current free list in address order.
func (la *LinkedListAllocator) Holes() []Hole {
	var holes []Hole
	for cur := la.first; cur != 0; cur = la.holeNext(cur) {
		holes = append(holes, Hole{Addr: cur, Size: la.holeSize(cur)})
	}
	return holes
}

// Free returns the number of bytes in holes.
func (la *LinkedListAllocator) Free() uintptr { return la.free }

// Used returns the number of bytes handed out, including alignment slack.
func (la *LinkedListAllocator) Used() uintptr { return la.top - la.bottom - la.free }

// Bottom returns the lowest managed address.
func (la *LinkedListAllocator) Bottom() uintptr { return la.bottom }

// Top returns the first address past the managed range.
func (la *LinkedListAllocator) Top() uintptr { return la.top }

// GetStats returns a copy of the allocator statistics.
func (la *LinkedListAllocator) GetStats() Stats { return la.stats }

// ============================================================================
// In-place hole nodes
// ============================================================================

func (la *LinkedListAllocator) holeSize(addr uintptr) uintptr {
	return la.mem.MustWord(addr)
}

func (la *LinkedListAllocator) holeNext(addr uintptr) uintptr {
	return la.mem.MustWord(addr + buf.WordSize)
}

func (la *LinkedListAllocator) writeHole(addr, size, next uintptr) {
	la.mem.MustPutWord(addr, size)
	la.mem.MustPutWord(addr+buf.WordSize, next)
}

// link points prev (or the list head when prev is 0) at next.
func (la *LinkedListAllocator) link(prev, next uintptr) {
	if prev == 0 {
		la.first = next
		return
	}
	la.mem.MustPutWord(prev+buf.WordSize, next)
}

// Compile-time interface check
var _ Allocator = (*LinkedListAllocator)(nil)
