package layout

// IsPowerOfTwo reports whether n is a non-zero power of two.
func IsPowerOfTwo(n uintptr) bool {
	return n != 0 && n&(n-1) == 0
}

// AlignUp returns addr rounded up to the next multiple of align. align must be
// a power of two. ok is false when the rounding wraps around the address space.
//
// Example:
//
//	AlignUp(1, 8)    = 8, true
//	AlignUp(8, 8)    = 8, true
//	AlignUp(0x1001, 0x1000) = 0x2000, true
func AlignUp(addr, align uintptr) (uintptr, bool) {
	mask := align - 1
	if addr > ^uintptr(0)-mask {
		return 0, false
	}
	return (addr + mask) &^ mask, true
}

// AlignDown returns addr rounded down to a multiple of align.
func AlignDown(addr, align uintptr) uintptr {
	return addr &^ (align - 1)
}
