package heap

import "errors"

var (
	// ErrFrameAllocationFailed indicates the frame allocator ran out of frames
	// while the heap range was being mapped.
	ErrFrameAllocationFailed = errors.New("heap: frame allocation failed")

	// ErrUnknownStrategy indicates an allocator strategy name that is not
	// recognized.
	ErrUnknownStrategy = errors.New("heap: unknown allocator strategy")

	// ErrNotPlainData indicates a Box value whose encoded size is not fixed.
	ErrNotPlainData = errors.New("heap: value is not fixed-size plain data")

	// ErrIndexOutOfRange indicates a Vec access past its length.
	ErrIndexOutOfRange = errors.New("heap: index out of range")
)
