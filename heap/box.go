package heap

import (
	"encoding/binary"
	"fmt"
)

// Box holds one fixed-size plain-data value on the kernel heap. The value is
// stored little-endian in the heap region, so only types accepted by
// encoding/binary (fixed-size numbers, arrays and structs of them) can be
// boxed.
type Box[T any] struct {
	h     *Heap
	addr  uintptr
	size  uintptr
	align uintptr
}

// NewBox allocates room for v on h and stores it there.
func NewBox[T any](h *Heap, v T) (*Box[T], error) {
	n := binary.Size(v)
	if n < 0 {
		return nil, fmt.Errorf("%w: %T", ErrNotPlainData, v)
	}
	size := uintptr(n)
	align := naturalAlign(size)

	addr, err := h.Alloc(size, align)
	if err != nil {
		return nil, err
	}
	b := &Box[T]{h: h, addr: addr, size: size, align: align}
	if err := b.Set(v); err != nil {
		_ = h.Dealloc(addr, size, align)
		return nil, err
	}
	return b, nil
}

// naturalAlign is the largest power of two <= 8 that divides size.
func naturalAlign(size uintptr) uintptr {
	align := uintptr(8)
	for align > 1 && size%align != 0 {
		align >>= 1
	}
	return align
}

// Addr returns the heap address of the value.
func (b *Box[T]) Addr() uintptr { return b.addr }

// Get loads the value.
func (b *Box[T]) Get() (T, error) {
	var v T
	raw, err := b.h.mem.Bytes(b.addr, b.size)
	if err != nil {
		return v, err
	}
	if _, err := binary.Decode(raw, binary.LittleEndian, &v); err != nil {
		return v, fmt.Errorf("heap: box %#x: %w", b.addr, err)
	}
	return v, nil
}

// Set stores v.
func (b *Box[T]) Set(v T) error {
	raw, err := b.h.mem.Bytes(b.addr, b.size)
	if err != nil {
		return err
	}
	if _, err := binary.Encode(raw, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("heap: box %#x: %w", b.addr, err)
	}
	return nil
}

// Free returns the value's memory to the heap. The Box must not be used
// afterwards.
func (b *Box[T]) Free() error {
	return b.h.Dealloc(b.addr, b.size, b.align)
}
