package heap

import (
	"fmt"

	"github.com/joshuapare/kcore/internal/buf"
)

const (
	vecElemSize   = 8
	vecElemAlign  = 8
	vecInitialCap = 4
)

// Vec is a growable array of uint64 stored on the kernel heap. It doubles its
// capacity through Heap.Realloc when full.
type Vec struct {
	h    *Heap
	addr uintptr
	len  int
	cap  int
}

// NewVec returns an empty Vec. Nothing is allocated until the first Push.
func NewVec(h *Heap) *Vec {
	return &Vec{h: h}
}

// Len returns the number of elements.
func (v *Vec) Len() int { return v.len }

// Cap returns the number of elements that fit without growing.
func (v *Vec) Cap() int { return v.cap }

// Push appends x, growing the backing block if needed.
func (v *Vec) Push(x uint64) error {
	if v.len == v.cap {
		if err := v.grow(); err != nil {
			return err
		}
	}
	if err := v.put(v.len, x); err != nil {
		return err
	}
	v.len++
	return nil
}

func (v *Vec) grow() error {
	newCap := max(vecInitialCap, 2*v.cap)
	newSize := uintptr(newCap) * vecElemSize
	if v.cap == 0 {
		addr, err := v.h.Alloc(newSize, vecElemAlign)
		if err != nil {
			return err
		}
		v.addr = addr
	} else {
		addr, err := v.h.Realloc(v.addr, uintptr(v.cap)*vecElemSize, vecElemAlign, newSize)
		if err != nil {
			return err
		}
		v.addr = addr
	}
	v.cap = newCap
	return nil
}

// Get returns element i.
func (v *Vec) Get(i int) (uint64, error) {
	if i < 0 || i >= v.len {
		return 0, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, v.len)
	}
	raw, err := v.h.mem.Bytes(v.elem(i), vecElemSize)
	if err != nil {
		return 0, err
	}
	return buf.U64LE(raw), nil
}

func (v *Vec) put(i int, x uint64) error {
	raw, err := v.h.mem.Bytes(v.elem(i), vecElemSize)
	if err != nil {
		return err
	}
	buf.PutU64LE(raw, x)
	return nil
}

func (v *Vec) elem(i int) uintptr {
	return v.addr + uintptr(i)*vecElemSize
}

// Sum returns the sum of all elements.
func (v *Vec) Sum() (uint64, error) {
	var sum uint64
	for i := range v.len {
		x, err := v.Get(i)
		if err != nil {
			return 0, err
		}
		sum += x
	}
	return sum, nil
}

// Free releases the backing block.
func (v *Vec) Free() error {
	if v.cap == 0 {
		return nil
	}
	err := v.h.Dealloc(v.addr, uintptr(v.cap)*vecElemSize, vecElemAlign)
	v.addr, v.len, v.cap = 0, 0, 0
	return err
}
