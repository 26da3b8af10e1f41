package heap

import (
	"fmt"

	"github.com/joshuapare/kcore/heap/region"
	"github.com/joshuapare/kcore/internal/layout"
)

// PageFlags are the page table entry flags used for heap pages.
type PageFlags uint8

const (
	FlagPresent PageFlags = 1 << iota
	FlagWritable
)

// FrameAllocator hands out physical frames of PageSize bytes.
type FrameAllocator interface {
	// AllocateFrame returns the start address of a fresh frame, or false
	// when no usable frames remain.
	AllocateFrame() (uintptr, bool)
}

// PageMapper installs virtual-to-physical mappings. It may take frames from
// frames for intermediate page tables.
type PageMapper interface {
	MapTo(page, frame uintptr, flags PageFlags, frames FrameAllocator) error
}

// InitHeap maps every page of [start, start+size) to a fresh frame and then
// initializes h over that range of mem.
func InitHeap(h *Heap, mapper PageMapper, frames FrameAllocator, mem *region.Region, start, size uintptr) error {
	if size == 0 {
		return fmt.Errorf("heap: empty heap range at %#x", start)
	}
	first := layout.AlignDown(start, PageSize)
	last := layout.AlignDown(start+size-1, PageSize)

	for page := first; ; page += PageSize {
		frame, ok := frames.AllocateFrame()
		if !ok {
			return fmt.Errorf("%w: mapping page %#x", ErrFrameAllocationFailed, page)
		}
		if err := mapper.MapTo(page, frame, FlagPresent|FlagWritable, frames); err != nil {
			return fmt.Errorf("heap: map page %#x to frame %#x: %w", page, frame, err)
		}
		if page == last {
			break
		}
	}
	return h.Init(mem, start, size)
}
