package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignUp(t *testing.T) {
	cases := []struct {
		addr, align, want uintptr
	}{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{0x1001, 0x1000, 0x2000},
		{0x4444_4444_0000, 2048, 0x4444_4444_0000},
	}
	for _, tc := range cases {
		got, ok := AlignUp(tc.addr, tc.align)
		require.True(t, ok, "AlignUp(%#x, %d)", tc.addr, tc.align)
		assert.Equal(t, tc.want, got, "AlignUp(%#x, %d)", tc.addr, tc.align)
	}
}

func TestAlignUp_Overflow(t *testing.T) {
	_, ok := AlignUp(^uintptr(0)-2, 8)
	assert.False(t, ok, "rounding past the top of the address space must fail")

	got, ok := AlignUp(^uintptr(0), 1)
	assert.True(t, ok)
	assert.Equal(t, ^uintptr(0), got)
}

func TestAlignDown(t *testing.T) {
	assert.Equal(t, uintptr(0x1000), AlignDown(0x1fff, 0x1000))
	assert.Equal(t, uintptr(16), AlignDown(16, 8))
}

func TestNew_RejectsBadAlign(t *testing.T) {
	for _, align := range []uintptr{0, 3, 12, 100} {
		_, err := New(8, align)
		require.ErrorIs(t, err, ErrBadAlign, "align %d", align)
	}

	l, err := New(24, 8)
	require.NoError(t, err)
	assert.Equal(t, uintptr(24), l.Required())
	assert.Equal(t, uintptr(64), MustNew(4, 64).Required())
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() { MustNew(8, 6) })
}
