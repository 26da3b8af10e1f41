// Package keyboard bridges keyboard interrupts into async tasks: the interrupt
// handler pushes raw scancodes onto a lock-free queue and a single consumer
// task reads them as a stream.
package keyboard

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/joshuapare/kcore/internal/arrayqueue"
)

// DefaultCapacity is the scancode queue size used when none is configured.
const DefaultCapacity = 100

var (
	// ErrQueueUninitialized indicates a scancode arrived before the queue was
	// initialized. The scancode is lost.
	ErrQueueUninitialized = errors.New("keyboard: scancode queue uninitialized")

	// ErrQueueFull indicates a scancode was dropped because the queue is full.
	ErrQueueFull = errors.New("keyboard: scancode queue full")

	// ErrQueueAlreadyInitialized indicates a second Init.
	ErrQueueAlreadyInitialized = errors.New("keyboard: scancode queue already initialized")

	// ErrStreamTaken is the panic value when a second stream is created on a
	// queue.
	ErrStreamTaken = errors.New("keyboard: scancode stream already created")
)

// QueueStats counts producer outcomes.
type QueueStats struct {
	Pushed  uint64 // scancodes enqueued
	Dropped uint64 // scancodes dropped because the queue was full
	Lost    uint64 // scancodes that arrived before Init
}

// ScancodeQueue is shared by exactly two parties: the keyboard interrupt
// handler (producer) and one ScancodeStream (consumer).
type ScancodeQueue struct {
	q     atomic.Pointer[arrayqueue.ArrayQueue[byte]]
	waker AtomicWaker

	streamTaken atomic.Bool

	pushed, dropped, lost atomic.Uint64

	logger *slog.Logger
}

// NewScancodeQueue returns an uninitialized queue. logger may be nil.
func NewScancodeQueue(logger *slog.Logger) *ScancodeQueue {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ScancodeQueue{logger: logger}
}

// Init allocates the ring with room for capacity scancodes, rounded up to a
// power of two. It succeeds only once.
func (s *ScancodeQueue) Init(capacity int) error {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if s.q.Load() != nil {
		return ErrQueueAlreadyInitialized
	}
	if !s.q.CompareAndSwap(nil, arrayqueue.New[byte](capacity)) {
		return ErrQueueAlreadyInitialized
	}
	return nil
}

// Initialized reports whether Init has run.
func (s *ScancodeQueue) Initialized() bool {
	return s.q.Load() != nil
}

// AddScancode is called from the keyboard interrupt handler. It never blocks.
// A scancode that cannot be queued is counted, logged and dropped; the error
// is informational only.
func (s *ScancodeQueue) AddScancode(b byte) error {
	q := s.q.Load()
	if q == nil {
		s.lost.Add(1)
		s.logger.Warn("scancode queue uninitialized", "scancode", b)
		return ErrQueueUninitialized
	}

	wasEmpty := q.IsEmpty()
	if !q.Push(b) {
		s.dropped.Add(1)
		s.logger.Warn("scancode queue full; dropping keyboard input", "scancode", b)
		return ErrQueueFull
	}
	s.pushed.Add(1)

	// A registered waker means the consumer saw the queue empty, whatever
	// wasEmpty says: the handler may race with the consumer's pop.
	if wasEmpty || s.waker.Registered() {
		s.waker.Wake()
	}
	return nil
}

// Len returns the number of queued scancodes.
func (s *ScancodeQueue) Len() int {
	if q := s.q.Load(); q != nil {
		return q.Len()
	}
	return 0
}

// Cap returns the queue capacity, or 0 before Init.
func (s *ScancodeQueue) Cap() int {
	if q := s.q.Load(); q != nil {
		return q.Cap()
	}
	return 0
}

// Stats returns the producer counters.
func (s *ScancodeQueue) Stats() QueueStats {
	return QueueStats{
		Pushed:  s.pushed.Load(),
		Dropped: s.dropped.Load(),
		Lost:    s.lost.Load(),
	}
}
