// Package layout describes the size and alignment of a memory request.
package layout

import (
	"errors"
	"fmt"
)

// ErrBadAlign indicates an alignment that is zero or not a power of two.
var ErrBadAlign = errors.New("layout: alignment must be a non-zero power of two")

// Layout is the size and alignment of a block of memory.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// New returns a Layout after validating align.
func New(size, align uintptr) (Layout, error) {
	if !IsPowerOfTwo(align) {
		return Layout{}, fmt.Errorf("%w: %d", ErrBadAlign, align)
	}
	return Layout{Size: size, Align: align}, nil
}

// MustNew is like New but panics on an invalid alignment. Only use it with
// constant arguments.
func MustNew(size, align uintptr) Layout {
	l, err := New(size, align)
	if err != nil {
		panic(err)
	}
	return l
}

// Required returns max(Size, Align), the smallest block that can hold the
// request at its required alignment.
func (l Layout) Required() uintptr {
	return max(l.Size, l.Align)
}

func (l Layout) String() string {
	return fmt.Sprintf("Layout{size=%d, align=%d}", l.Size, l.Align)
}
