package alloc

import (
	"github.com/joshuapare/kcore/heap/region"
	"github.com/joshuapare/kcore/internal/layout"
)

// Allocator is the kernel's memory allocation contract.
//
// Implementations:
//   - BumpAllocator: linear allocator that frees everything at once
//   - LinkedListAllocator: first-fit allocator over an address-ordered hole list
//   - FixedSizeBlockAllocator: segregated size-class lists over a LinkedListAllocator
//
// None of the implementations are safe for concurrent use; wrap them with
// heap.Locked.
type Allocator interface {
	// Init hands the allocator the range [start, start+size) of mem. It must
	// be called exactly once, before any allocation, and the caller
	// guarantees the range is otherwise unused.
	Init(mem *region.Region, start, size uintptr) error

	// Alloc returns the address of a block that satisfies l, or
	// ErrOutOfMemory.
	Alloc(l layout.Layout) (uintptr, error)

	// Dealloc returns a block obtained from Alloc with the same layout.
	Dealloc(addr uintptr, l layout.Layout) error
}
