// Package region models a contiguous range of kernel virtual memory backed by
// host memory.
//
// Allocators never touch Go pointers into the region; they work with kernel
// virtual addresses (uintptr) and read or write metadata through the word
// accessors here. Translation is a fixed offset from the virtual base, the
// same way an offset page table maps physical memory.
package region

import (
	"errors"
	"fmt"

	"github.com/joshuapare/kcore/internal/buf"
)

var (
	// ErrOutOfBounds indicates an access that is not fully inside the region.
	ErrOutOfBounds = errors.New("region: access out of bounds")

	// ErrBadSize indicates a zero or negative region size.
	ErrBadSize = errors.New("region: size must be positive")

	// ErrUnmapped indicates use of a region after Unmap.
	ErrUnmapped = errors.New("region: unmapped")
)

// Region is a range [Start, End) of virtual addresses backed by mem.
type Region struct {
	base  uintptr
	mem   []byte
	unmap func([]byte) error
}

// Map reserves size bytes of zeroed host memory and exposes them at the
// virtual address base.
func Map(base uintptr, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	if _, ok := buf.AddrAdd(base, uintptr(size)); !ok {
		return nil, fmt.Errorf("region: base %#x + size %d overflows", base, size)
	}
	mem, err := mapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("region: map %d bytes: %w", size, err)
	}
	return &Region{base: base, mem: mem, unmap: unmapAnon}, nil
}

// FromBytes exposes b at the virtual address base. The region does not own b.
func FromBytes(base uintptr, b []byte) *Region {
	return &Region{base: base, mem: b}
}

// Unmap releases the backing memory. Further accesses fail with ErrUnmapped.
func (r *Region) Unmap() error {
	if r.mem == nil {
		return ErrUnmapped
	}
	mem := r.mem
	r.mem = nil
	if r.unmap != nil {
		return r.unmap(mem)
	}
	return nil
}

// Start returns the first virtual address of the region.
func (r *Region) Start() uintptr { return r.base }

// End returns the first virtual address past the region.
func (r *Region) End() uintptr { return r.base + uintptr(len(r.mem)) }

// Size returns the region length in bytes.
func (r *Region) Size() uintptr { return uintptr(len(r.mem)) }

// Contains reports whether [addr, addr+n) lies inside the region.
func (r *Region) Contains(addr, n uintptr) bool {
	off, ok := buf.AddrSub(addr, r.base)
	return ok && off <= r.Size() && n <= r.Size()-off
}

// Bytes returns the backing slice for [addr, addr+n). Writes through the slice
// modify the region.
func (r *Region) Bytes(addr, n uintptr) ([]byte, error) {
	if r.mem == nil {
		return nil, ErrUnmapped
	}
	if !r.Contains(addr, n) {
		return nil, fmt.Errorf("%w: [%#x, +%d) not in [%#x, %#x)", ErrOutOfBounds, addr, n, r.base, r.End())
	}
	off := addr - r.base
	return r.mem[off : off+n : off+n], nil
}

// Word reads the machine word stored at addr.
func (r *Region) Word(addr uintptr) (uintptr, error) {
	b, err := r.Bytes(addr, buf.WordSize)
	if err != nil {
		return 0, err
	}
	return buf.Word(b), nil
}

// PutWord stores v at addr.
func (r *Region) PutWord(addr, v uintptr) error {
	b, err := r.Bytes(addr, buf.WordSize)
	if err != nil {
		return err
	}
	buf.PutWord(b, v)
	return nil
}

// MustWord is like Word but panics on error. Allocators use it for their own
// metadata, where a failed access means corrupted bookkeeping.
func (r *Region) MustWord(addr uintptr) uintptr {
	v, err := r.Word(addr)
	if err != nil {
		panic(err)
	}
	return v
}

// MustPutWord is like PutWord but panics on error.
func (r *Region) MustPutWord(addr, v uintptr) {
	if err := r.PutWord(addr, v); err != nil {
		panic(err)
	}
}

// Copy copies n bytes from src to dst. The ranges may overlap.
func (r *Region) Copy(dst, src, n uintptr) error {
	d, err := r.Bytes(dst, n)
	if err != nil {
		return err
	}
	s, err := r.Bytes(src, n)
	if err != nil {
		return err
	}
	copy(d, s)
	return nil
}

// Fill sets n bytes starting at addr to v.
func (r *Region) Fill(addr, n uintptr, v byte) error {
	b, err := r.Bytes(addr, n)
	if err != nil {
		return err
	}
	for i := range b {
		b[i] = v
	}
	return nil
}
