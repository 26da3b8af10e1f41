package kernel

import (
	"errors"
	"fmt"

	"github.com/joshuapare/kcore/heap"
)

var (
	// ErrPageAlreadyMapped indicates a MapTo on a page that has a mapping.
	ErrPageAlreadyMapped = errors.New("kernel: page already mapped")

	// ErrUnaligned indicates a page or frame address that is not page-aligned.
	ErrUnaligned = errors.New("kernel: address not page-aligned")
)

type pageEntry struct {
	frame uintptr
	flags heap.PageFlags
}

// PageTable models a four-level x86_64 page table. Intermediate tables are
// allocated from the frame allocator on first use, like an OffsetPageTable.
type PageTable struct {
	// tables maps the address prefix covered by an intermediate table to
	// the frame holding it.
	tables  map[tableKey]uintptr
	entries map[uintptr]pageEntry
}

type tableKey struct {
	level  uint8
	prefix uintptr
}

// NewPageTable returns an empty page table.
func NewPageTable() *PageTable {
	return &PageTable{
		tables:  make(map[tableKey]uintptr),
		entries: make(map[uintptr]pageEntry),
	}
}

// MapTo implements heap.PageMapper.
func (pt *PageTable) MapTo(page, frame uintptr, flags heap.PageFlags, frames heap.FrameAllocator) error {
	if page%heap.PageSize != 0 || frame%heap.PageSize != 0 {
		return fmt.Errorf("%w: page %#x frame %#x", ErrUnaligned, page, frame)
	}
	if _, ok := pt.entries[page]; ok {
		return fmt.Errorf("%w: %#x", ErrPageAlreadyMapped, page)
	}

	// Level 3, 2 and 1 tables cover 512 GiB, 1 GiB and 2 MiB respectively.
	for level, shift := range [...]uint{39, 30, 21} {
		key := tableKey{level: uint8(3 - level), prefix: page >> shift}
		if _, ok := pt.tables[key]; ok {
			continue
		}
		tableFrame, ok := frames.AllocateFrame()
		if !ok {
			return fmt.Errorf("%w: page table for %#x", heap.ErrFrameAllocationFailed, page)
		}
		pt.tables[key] = tableFrame
	}

	pt.entries[page] = pageEntry{frame: frame, flags: flags}
	return nil
}

// Translate returns the physical address addr maps to.
func (pt *PageTable) Translate(addr uintptr) (uintptr, bool) {
	page := addr &^ (heap.PageSize - 1)
	e, ok := pt.entries[page]
	if !ok {
		return 0, false
	}
	return e.frame + addr - page, true
}

// Flags returns the flags of the page containing addr.
func (pt *PageTable) Flags(addr uintptr) (heap.PageFlags, bool) {
	e, ok := pt.entries[addr&^(heap.PageSize-1)]
	return e.flags, ok
}

// Mapped returns the number of mapped pages.
func (pt *PageTable) Mapped() int { return len(pt.entries) }

// Tables returns the number of intermediate page tables.
func (pt *PageTable) Tables() int { return len(pt.tables) }

var _ heap.PageMapper = (*PageTable)(nil)
