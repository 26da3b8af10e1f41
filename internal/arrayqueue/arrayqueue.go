// Package arrayqueue implements a bounded, lock-free, multi-producer
// multi-consumer FIFO queue over a fixed ring of slots.
//
// Push and Pop never block and never allocate, which makes the queue usable
// from interrupt handlers. Each slot carries a sequence number that tells
// producers and consumers whose turn it is; the capacity is always a power of
// two so positions map to slots with a mask.
package arrayqueue

import (
	"sync/atomic"
)

const cacheLine = 64

type slot[T any] struct {
	seq atomic.Uint64
	val T
}

// ArrayQueue is a fixed-capacity FIFO. The zero value is not usable; call New.
type ArrayQueue[T any] struct {
	head atomic.Uint64
	_    [cacheLine - 8]byte
	tail atomic.Uint64
	_    [cacheLine - 8]byte

	mask  uint64
	slots []slot[T]
}

// New returns a queue that holds at least capacity elements. The capacity is
// rounded up to the next power of two. New panics if capacity < 1.
func New[T any](capacity int) *ArrayQueue[T] {
	if capacity < 1 {
		panic("arrayqueue: capacity must be positive")
	}
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}

	q := &ArrayQueue[T]{
		mask:  size - 1,
		slots: make([]slot[T], size),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// Push appends v to the tail of the queue. It returns false without modifying
// the queue when the queue is full.
func (q *ArrayQueue[T]) Push(v T) bool {
	pos := q.tail.Load()
	for {
		s := &q.slots[pos&q.mask]
		seq := s.seq.Load()
		switch dif := int64(seq - pos); {
		case dif == 0:
			if q.tail.CompareAndSwap(pos, pos+1) {
				s.val = v
				s.seq.Store(pos + 1)
				return true
			}
			pos = q.tail.Load()
		case dif < 0:
			return false
		default:
			pos = q.tail.Load()
		}
	}
}

// Pop removes and returns the element at the head of the queue. ok is false
// when the queue is empty.
func (q *ArrayQueue[T]) Pop() (v T, ok bool) {
	pos := q.head.Load()
	for {
		s := &q.slots[pos&q.mask]
		seq := s.seq.Load()
		switch dif := int64(seq - (pos + 1)); {
		case dif == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				v = s.val
				var zero T
				s.val = zero
				s.seq.Store(pos + q.mask + 1)
				return v, true
			}
			pos = q.head.Load()
		case dif < 0:
			return v, false
		default:
			pos = q.head.Load()
		}
	}
}

// Len returns the number of queued elements. The value is a snapshot and may
// be stale by the time it is used when other goroutines are active.
func (q *ArrayQueue[T]) Len() int {
	for {
		tail := q.tail.Load()
		head := q.head.Load()
		if q.tail.Load() == tail {
			n := tail - head
			if n > q.mask+1 {
				n = q.mask + 1
			}
			return int(n)
		}
	}
}

// Cap returns the fixed capacity of the queue.
func (q *ArrayQueue[T]) Cap() int {
	return int(q.mask + 1)
}

// IsEmpty reports whether the queue holds no elements.
func (q *ArrayQueue[T]) IsEmpty() bool {
	return q.Len() == 0
}

// IsFull reports whether a Push would fail.
func (q *ArrayQueue[T]) IsFull() bool {
	return q.Len() == q.Cap()
}
