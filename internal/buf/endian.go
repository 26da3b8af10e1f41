// Package buf contains word-sized load/store helpers used by the allocators to
// read and write metadata stored inside managed memory.
package buf

import "encoding/binary"

// WordSize is the size in bytes of a machine word on the supported targets.
const WordSize = 8

// U64LE reads a little-endian uint64 from b. Returns 0 when b is too short.
func U64LE(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// PutU64LE writes v into b as little-endian. Returns false when b is too short.
func PutU64LE(b []byte, v uint64) bool {
	if len(b) < 8 {
		return false
	}
	binary.LittleEndian.PutUint64(b, v)
	return true
}

// Word reads a machine word stored at b[0:WordSize].
func Word(b []byte) uintptr {
	return uintptr(U64LE(b))
}

// PutWord stores a machine word at b[0:WordSize].
func PutWord(b []byte, v uintptr) bool {
	return PutU64LE(b, uint64(v))
}
