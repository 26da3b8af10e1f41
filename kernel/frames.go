package kernel

import (
	"github.com/joshuapare/kcore/heap"
	"github.com/joshuapare/kcore/internal/layout"
)

// RegionKind classifies a memory map entry.
type RegionKind uint8

const (
	// RegionReserved memory is in use by firmware, the kernel image or
	// devices.
	RegionReserved RegionKind = iota
	// RegionUsable memory is free for the frame allocator.
	RegionUsable
)

// MemoryRegion is one entry of the boot memory map, [Start, End).
type MemoryRegion struct {
	Start, End uintptr
	Kind       RegionKind
}

// MemoryMapFromConfig converts configured regions.
func MemoryMapFromConfig(cfg MemoryConfig) []MemoryRegion {
	regions := make([]MemoryRegion, 0, len(cfg.Regions))
	for _, r := range cfg.Regions {
		kind := RegionReserved
		if r.Kind == "usable" {
			kind = RegionUsable
		}
		regions = append(regions, MemoryRegion{Start: uintptr(r.Start), End: uintptr(r.End), Kind: kind})
	}
	return regions
}

// BootInfoFrameAllocator hands out the usable frames of a memory map in
// address order. Frames are never returned.
type BootInfoFrameAllocator struct {
	regions []MemoryRegion

	// region indexes regions; next is the next candidate frame inside it.
	region int
	next   uintptr

	allocated int
}

// NewBootInfoFrameAllocator creates a frame allocator over memoryMap. The
// caller guarantees that every usable region is really unused.
func NewBootInfoFrameAllocator(memoryMap []MemoryRegion) *BootInfoFrameAllocator {
	var usable []MemoryRegion
	for _, r := range memoryMap {
		if r.Kind == RegionUsable {
			usable = append(usable, r)
		}
	}
	fa := &BootInfoFrameAllocator{regions: usable}
	if len(usable) > 0 {
		fa.next = usable[0].Start
	}
	return fa
}

// AllocateFrame implements heap.FrameAllocator.
func (fa *BootInfoFrameAllocator) AllocateFrame() (uintptr, bool) {
	for fa.region < len(fa.regions) {
		r := fa.regions[fa.region]
		frame, ok := layout.AlignUp(fa.next, heap.PageSize)
		if ok && frame < r.End && r.End-frame >= heap.PageSize {
			fa.next = frame + heap.PageSize
			fa.allocated++
			return frame, true
		}
		fa.region++
		if fa.region < len(fa.regions) {
			fa.next = fa.regions[fa.region].Start
		}
	}
	return 0, false
}

// Allocated returns the number of frames handed out.
func (fa *BootInfoFrameAllocator) Allocated() int { return fa.allocated }

var _ heap.FrameAllocator = (*BootInfoFrameAllocator)(nil)
