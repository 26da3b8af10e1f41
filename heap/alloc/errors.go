package alloc

import "errors"

var (
	// ErrOutOfMemory indicates that no block large enough is available. It is a
	// recoverable condition; the caller decides whether it is fatal.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrNotInitialized indicates use of an allocator before Init.
	ErrNotInitialized = errors.New("alloc: allocator not initialized")

	// ErrAlreadyInitialized indicates a second call to Init.
	ErrAlreadyInitialized = errors.New("alloc: allocator already initialized")

	// ErrBadRange indicates an Init range that is empty, unaligned beyond
	// repair, or outside the backing region.
	ErrBadRange = errors.New("alloc: bad heap range")

	// ErrBadAddr indicates a deallocation of an address the allocator does not
	// manage.
	ErrBadAddr = errors.New("alloc: bad address")

	// ErrBadConfig indicates an invalid size class configuration.
	ErrBadConfig = errors.New("alloc: bad size class configuration")

	// ErrInvariant marks panics raised when allocator metadata is inconsistent.
	// These indicate memory corruption or a configuration bug and are never
	// returned as errors.
	ErrInvariant = errors.New("alloc: invariant violated")
)
