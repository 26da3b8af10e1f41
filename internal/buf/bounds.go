package buf

// AddrAdd adds n to addr, returning ok = false when the sum wraps around the
// address space.
func AddrAdd(addr, n uintptr) (uintptr, bool) {
	sum := addr + n
	if sum < addr {
		return 0, false
	}
	return sum, true
}

// AddrSub returns addr-n, or ok = false when n > addr.
func AddrSub(addr, n uintptr) (uintptr, bool) {
	if n > addr {
		return 0, false
	}
	return addr - n, true
}
