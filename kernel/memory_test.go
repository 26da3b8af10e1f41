package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kcore/heap"
)

func TestBootInfoFrameAllocator_UsableOnly(t *testing.T) {
	fa := NewBootInfoFrameAllocator([]MemoryRegion{
		{Start: 0x0, End: 0x1000, Kind: RegionReserved},
		{Start: 0x1000, End: 0x3000, Kind: RegionUsable},
		{Start: 0x3000, End: 0x5000, Kind: RegionReserved},
		{Start: 0x5000, End: 0x6800, Kind: RegionUsable},
	})

	var frames []uintptr
	for {
		f, ok := fa.AllocateFrame()
		if !ok {
			break
		}
		frames = append(frames, f)
	}
	assert.Equal(t, []uintptr{0x1000, 0x2000, 0x5000}, frames, "partial frames are skipped")
	assert.Equal(t, 3, fa.Allocated())

	_, ok := fa.AllocateFrame()
	assert.False(t, ok, "exhaustion is sticky")
}

func TestBootInfoFrameAllocator_Empty(t *testing.T) {
	_, ok := NewBootInfoFrameAllocator(nil).AllocateFrame()
	assert.False(t, ok)
}

func TestMemoryMapFromConfig(t *testing.T) {
	regions := MemoryMapFromConfig(DefaultConfig().Memory)
	require.Len(t, regions, 2)
	assert.Equal(t, RegionReserved, regions[0].Kind)
	assert.Equal(t, MemoryRegion{Start: 0x10_0000, End: 0x80_0000, Kind: RegionUsable}, regions[1])
}

func TestPageTable_MapTo(t *testing.T) {
	pt := NewPageTable()
	fa := NewBootInfoFrameAllocator([]MemoryRegion{{Start: 0x10_0000, End: 0x20_0000, Kind: RegionUsable}})
	flags := heap.FlagPresent | heap.FlagWritable

	require.NoError(t, pt.MapTo(heap.HeapStart, 0xb8000, flags, fa))
	assert.Equal(t, 3, pt.Tables(), "first mapping allocates three intermediate tables")
	assert.Equal(t, 3, fa.Allocated())

	require.NoError(t, pt.MapTo(heap.HeapStart+heap.PageSize, 0xb9000, flags, fa))
	assert.Equal(t, 3, pt.Tables(), "neighboring page shares the tables")

	phys, ok := pt.Translate(heap.HeapStart + 0x123)
	require.True(t, ok)
	assert.Equal(t, uintptr(0xb8123), phys)
	got, ok := pt.Flags(heap.HeapStart)
	require.True(t, ok)
	assert.Equal(t, flags, got)

	_, ok = pt.Translate(heap.HeapStart + 2*heap.PageSize)
	assert.False(t, ok)
	assert.Equal(t, 2, pt.Mapped())

	require.ErrorIs(t, pt.MapTo(heap.HeapStart, 0xba000, flags, fa), ErrPageAlreadyMapped)
	require.ErrorIs(t, pt.MapTo(heap.HeapStart+1, 0xba000, flags, fa), ErrUnaligned)
}

func TestPageTable_TableFrameExhaustion(t *testing.T) {
	pt := NewPageTable()
	fa := NewBootInfoFrameAllocator([]MemoryRegion{{Start: 0x1000, End: 0x3000, Kind: RegionUsable}})

	err := pt.MapTo(heap.HeapStart, 0xb8000, heap.FlagPresent, fa)
	require.ErrorIs(t, err, heap.ErrFrameAllocationFailed)
	assert.Equal(t, 0, pt.Mapped())
}
