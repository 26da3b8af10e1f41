package keyboard

import (
	"github.com/joshuapare/kcore/task"
)

// ScancodeStream is the single consumer of a ScancodeQueue. The stream never
// ends.
type ScancodeStream struct {
	queue *ScancodeQueue
}

// NewScancodeStream creates the consumer for queue, initializing the queue
// with capacity if nothing has yet. It panics with ErrStreamTaken if a stream
// already exists for queue.
func NewScancodeStream(queue *ScancodeQueue, capacity int) *ScancodeStream {
	if !queue.streamTaken.CompareAndSwap(false, true) {
		panic(ErrStreamTaken)
	}
	if !queue.Initialized() {
		// Losing the race to the kernel's own Init is fine.
		_ = queue.Init(capacity)
	}
	return &ScancodeStream{queue: queue}
}

// PollNext returns the oldest scancode, or Pending after registering the
// task's waker.
func (s *ScancodeStream) PollNext(cx *task.Context) (byte, task.Poll) {
	q := s.queue.q.Load()
	if b, ok := q.Pop(); ok {
		return b, task.Ready
	}

	s.queue.waker.Register(cx.Waker())
	// The handler may have pushed between the pop and the registration.
	if b, ok := q.Pop(); ok {
		s.queue.waker.Take()
		return b, task.Ready
	}
	return 0, task.Pending
}

// NextFuture resolves to the next scancode of a stream.
type NextFuture struct {
	stream   *ScancodeStream
	scancode byte
	done     bool
}

// Next returns a future for the next scancode.
func (s *ScancodeStream) Next() *NextFuture {
	return &NextFuture{stream: s}
}

// Poll implements task.Future.
func (f *NextFuture) Poll(cx *task.Context) task.Poll {
	if f.done {
		return task.Ready
	}
	b, p := f.stream.PollNext(cx)
	if p == task.Ready {
		f.scancode, f.done = b, true
	}
	return p
}

// Scancode returns the resolved scancode. It is only valid after Poll
// returned Ready.
func (f *NextFuture) Scancode() byte { return f.scancode }

var _ task.Future = (*NextFuture)(nil)
