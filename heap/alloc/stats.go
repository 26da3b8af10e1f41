package alloc

// Stats holds internal allocator statistics.
type Stats struct {
	AllocCalls    int   // Total Alloc() calls
	AllocFailures int   // Alloc() calls that returned ErrOutOfMemory
	FreeCalls     int   // Total Dealloc() calls
	BytesInUse    int64 // Bytes currently handed out (requested sizes)

	// Fixed-size-block routing
	ListReuse      int // Allocations served by popping a size-class list
	ListMiss       int // Allocations that took a fresh block from the fallback
	Oversized      int // Allocations with no matching class, sent to the fallback
	ListPushes     int // Deallocations pushed onto a size-class list
	OversizedFrees int // Deallocations returned to the fallback

	// Bump
	Resets int // Times the bump cursor returned to the heap start
}
