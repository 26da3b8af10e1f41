package alloc

import (
	"fmt"

	"github.com/joshuapare/kcore/heap/region"
	"github.com/joshuapare/kcore/internal/layout"
)

// FixedSizeBlockAllocator serves small requests from segregated free lists,
// one per size class, and everything else from a LinkedListAllocator.
//
//   - A request is routed to the smallest class >= max(size, align).
//   - A class with a non-empty list pops its head in O(1).
//   - A class with an empty list takes a fresh class-sized, class-aligned
//     block from the fallback.
//   - Requests larger than every class go to the fallback unchanged.
//
// Freed class blocks are pushed onto their list with the list node written
// into the block itself. They are never handed back to the fallback, so the
// memory held by the lists only grows.
type FixedSizeBlockAllocator struct {
	mem *region.Region

	sizeTable *sizeClassTable

	// heads holds the address of the first free block per class (0 = empty).
	heads []uintptr

	// lengths tracks the number of blocks on each list.
	lengths []int

	fallback *LinkedListAllocator

	initialized bool
	stats       Stats
}

// NewFixedSizeBlock creates an uninitialized allocator.
//
// Parameters:
//   - config: Size class configuration (use nil for DefaultConfig)
func NewFixedSizeBlock(config *SizeClassConfig) (*FixedSizeBlockAllocator, error) {
	if config == nil {
		config = &DefaultConfig
	}
	sizeTable, err := newSizeClassTable(*config)
	if err != nil {
		return nil, err
	}
	return &FixedSizeBlockAllocator{
		sizeTable: sizeTable,
		heads:     make([]uintptr, sizeTable.NumClasses()),
		lengths:   make([]int, sizeTable.NumClasses()),
		fallback:  NewLinkedList(),
	}, nil
}

// Init implements Allocator. The whole range is handed to the fallback.
func (fa *FixedSizeBlockAllocator) Init(mem *region.Region, start, size uintptr) error {
	if fa.initialized {
		return ErrAlreadyInitialized
	}
	if err := fa.fallback.Init(mem, start, size); err != nil {
		return err
	}
	fa.mem = mem
	fa.initialized = true
	return nil
}

// Alloc implements Allocator.
func (fa *FixedSizeBlockAllocator) Alloc(l layout.Layout) (uintptr, error) {
	fa.stats.AllocCalls++
	if !fa.initialized {
		return 0, ErrNotInitialized
	}

	index, ok := fa.sizeTable.listIndex(l)
	if !ok {
		fa.stats.Oversized++
		return fa.fallbackAlloc(l)
	}

	if head := fa.heads[index]; head != 0 {
		fa.heads[index] = fa.mem.MustWord(head)
		fa.lengths[index]--
		fa.stats.ListReuse++
		fa.stats.BytesInUse += int64(l.Size)
		traceAlloc("fixed_size_block", head, l.Size, l.Align, nil)
		return head, nil
	}

	// No block on the list: take a new one from the fallback. Block size and
	// alignment are both the class size.
	fa.stats.ListMiss++
	blockSize := fa.sizeTable.sizes[index]
	addr, err := fa.fallbackAlloc(layout.Layout{Size: blockSize, Align: blockSize})
	if err != nil {
		return 0, err
	}
	fa.stats.BytesInUse += int64(l.Size) - int64(blockSize)
	return addr, nil
}

func (fa *FixedSizeBlockAllocator) fallbackAlloc(l layout.Layout) (uintptr, error) {
	addr, err := fa.fallback.Alloc(l)
	if err != nil {
		fa.stats.AllocFailures++
		return 0, err
	}
	fa.stats.BytesInUse += int64(l.Size)
	return addr, nil
}

// Dealloc implements Allocator.
func (fa *FixedSizeBlockAllocator) Dealloc(addr uintptr, l layout.Layout) error {
	if !fa.initialized {
		return ErrNotInitialized
	}
	fa.stats.FreeCalls++

	index, ok := fa.sizeTable.listIndex(l)
	if !ok {
		if err := fa.fallback.Dealloc(addr, l); err != nil {
			return err
		}
		fa.stats.OversizedFrees++
		fa.stats.BytesInUse -= int64(l.Size)
		return nil
	}

	blockSize := fa.sizeTable.sizes[index]
	// The block must be able to hold a list node.
	if listNodeSize > blockSize || listNodeAlign > blockSize {
		panic(fmt.Errorf("%w: size class %d too small for a %d-byte list node", ErrInvariant, blockSize, listNodeSize))
	}
	if addr%blockSize != 0 || !fa.mem.Contains(addr, blockSize) {
		return fmt.Errorf("%w: %#x is not a %d-byte block", ErrBadAddr, addr, blockSize)
	}

	fa.mem.MustPutWord(addr, fa.heads[index])
	fa.heads[index] = addr
	fa.lengths[index]++
	fa.stats.ListPushes++
	fa.stats.BytesInUse -= int64(l.Size)
	traceFree("fixed_size_block", addr, l.Size, l.Align)
	return nil
}

// ListLen returns the number of free blocks on the list for class index.
func (fa *FixedSizeBlockAllocator) ListLen(index int) int {
	return fa.lengths[index]
}

// ClassSize returns the block size of class index.
func (fa *FixedSizeBlockAllocator) ClassSize(index int) uintptr {
	return fa.sizeTable.sizes[index]
}

// NumClasses returns the number of size classes.
func (fa *FixedSizeBlockAllocator) NumClasses() int {
	return fa.sizeTable.NumClasses()
}

// ListIndex returns the class index this allocator routes l to.
func (fa *FixedSizeBlockAllocator) ListIndex(l layout.Layout) (int, bool) {
	return fa.sizeTable.listIndex(l)
}

// Fallback exposes the fallback allocator for inspection.
func (fa *FixedSizeBlockAllocator) Fallback() *LinkedListAllocator {
	return fa.fallback
}

// GetStats returns a copy of the allocator statistics.
func (fa *FixedSizeBlockAllocator) GetStats() Stats {
	return fa.stats
}

// Compile-time interface check
var _ Allocator = (*FixedSizeBlockAllocator)(nil)
