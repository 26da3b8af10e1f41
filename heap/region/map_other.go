//go:build !linux && !darwin

package region

// mapAnon falls back to a Go slice on platforms without mmap support.
func mapAnon(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func unmapAnon([]byte) error {
	return nil
}
