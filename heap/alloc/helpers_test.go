package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kcore/heap/region"
	"github.com/joshuapare/kcore/internal/layout"
)

const (
	// testHeapStart mirrors the kernel's heap base so addresses in failures
	// look like real kernel addresses.
	testHeapStart = 0x4444_4444_0000

	testHeapSize = 100 * 1024
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRegion maps a region of size bytes at testHeapStart and unmaps it when
// the test ends.
func newTestRegion(t testing.TB, size int) *region.Region {
	t.Helper()
	r, err := region.Map(testHeapStart, size)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Unmap() })
	return r
}

func newTestBump(t testing.TB, size int) (*BumpAllocator, *region.Region) {
	t.Helper()
	r := newTestRegion(t, size)
	ba := NewBump()
	require.NoError(t, ba.Init(r, r.Start(), r.Size()))
	return ba, r
}

func newTestLinkedList(t testing.TB, size int) (*LinkedListAllocator, *region.Region) {
	t.Helper()
	r := newTestRegion(t, size)
	la := NewLinkedList()
	require.NoError(t, la.Init(r, r.Start(), r.Size()))
	return la, r
}

func newTestFixed(t testing.TB, size int) (*FixedSizeBlockAllocator, *region.Region) {
	t.Helper()
	r := newTestRegion(t, size)
	fa, err := NewFixedSizeBlock(nil)
	require.NoError(t, err)
	require.NoError(t, fa.Init(r, r.Start(), r.Size()))
	return fa, r
}

func lay(size, align uintptr) layout.Layout {
	return layout.MustNew(size, align)
}

// span is a live allocation used by overlap checks.
type span struct {
	addr uintptr
	l    layout.Layout
	fill byte
}

// requireDisjoint fails if any two live spans overlap.
func requireDisjoint(t testing.TB, live []span) {
	t.Helper()
	for i := range live {
		for j := i + 1; j < len(live); j++ {
			a, b := live[i], live[j]
			if a.l.Size == 0 || b.l.Size == 0 {
				continue
			}
			overlap := a.addr < b.addr+b.l.Size && b.addr < a.addr+a.l.Size
			require.False(t, overlap,
				"allocations overlap: %#x+%d and %#x+%d", a.addr, a.l.Size, b.addr, b.l.Size)
		}
	}
}

// fillSpan writes s.fill over the allocation.
func fillSpan(t testing.TB, r *region.Region, s span) {
	t.Helper()
	require.NoError(t, r.Fill(s.addr, s.l.Size, s.fill))
}

// requireIntact checks that the allocation still holds its fill byte.
func requireIntact(t testing.TB, r *region.Region, s span) {
	t.Helper()
	b, err := r.Bytes(s.addr, s.l.Size)
	require.NoError(t, err)
	for i, v := range b {
		require.Equal(t, s.fill, v, "allocation %#x corrupted at byte %d", s.addr, i)
	}
}
