package cpu

import (
	"sync"
)

// Sim is a single-core CPU model for running the kernel core as a normal
// process. Interrupts raised by devices are delivered on the raising goroutine
// while the interrupt flag is set, or queued until it is set again. Only one
// handler runs at a time and interrupts never nest.
type Sim struct {
	mu   sync.Mutex
	cond *sync.Cond

	enabled bool
	running bool
	closed  bool

	pending  []Vector
	handlers map[Vector]Handler
	ports    map[uint16]uint8

	// delivered counts interrupts that have been serviced; Halt waits for it
	// to change.
	delivered uint64
	byVector  map[Vector]uint64
	stats     SimStats
}

// SimStats holds counters for tests and diagnostics.
type SimStats struct {
	Delivered uint64 // interrupts serviced by a handler
	Deferred  uint64 // interrupts queued because the flag was clear
	Spurious  uint64 // interrupts with no registered handler
	Halts     uint64 // Halt/EnableAndHalt calls that actually waited
}

// NewSim returns a CPU with interrupts disabled, as after boot.
func NewSim() *Sim {
	s := &Sim{
		handlers: make(map[Vector]Handler),
		byVector: make(map[Vector]uint64),
		ports:    make(map[uint16]uint8),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Handle registers h for vector v, replacing any previous handler.
func (s *Sim) Handle(v Vector, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[v] = h
}

// Raise signals interrupt v. It returns once the interrupt was either
// serviced or queued for later delivery.
func (s *Sim) Raise(v Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.pending = append(s.pending, v)
	if !s.enabled || s.running {
		s.stats.Deferred++
		return
	}
	s.deliverLocked()
}

// Inject models a device latching val into port and raising v.
func (s *Sim) Inject(v Vector, port uint16, val uint8) {
	s.mu.Lock()
	s.ports[port] = val
	s.mu.Unlock()
	s.Raise(v)
}

// deliverLocked services pending interrupts while the flag is set. The lock is
// released around each handler call so handlers may use port I/O.
func (s *Sim) deliverLocked() {
	for s.enabled && !s.running && len(s.pending) > 0 {
		v := s.pending[0]
		s.pending = s.pending[1:]

		h, ok := s.handlers[v]
		if !ok {
			s.stats.Spurious++
			continue
		}

		s.running = true
		s.mu.Unlock()
		h(v)
		s.mu.Lock()
		s.running = false

		s.delivered++
		s.byVector[v]++
		s.stats.Delivered++
		s.cond.Broadcast()
	}
}

// EnableInterrupts implements CPU.
func (s *Sim) EnableInterrupts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
	s.deliverLocked()
}

// DisableInterrupts implements CPU. It waits for an in-flight handler to
// finish, since on real hardware the handler would have completed before the
// interrupted code could execute cli.
func (s *Sim) DisableInterrupts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.running {
		s.cond.Wait()
	}
	s.enabled = false
}

// InterruptsEnabled implements CPU.
func (s *Sim) InterruptsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// EnableAndHalt implements CPU.
func (s *Sim) EnableAndHalt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enabled = true
	seen := s.delivered
	s.deliverLocked()
	s.haltLocked(seen)
}

// Halt implements CPU.
func (s *Sim) Halt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.haltLocked(s.delivered)
}

func (s *Sim) haltLocked(seen uint64) {
	if s.delivered != seen || s.closed {
		return
	}
	s.stats.Halts++
	for s.delivered == seen && !s.closed {
		s.cond.Wait()
	}
}

// Close wakes every halted caller and turns subsequent halts and raises into
// no-ops. It models powering the machine off.
func (s *Sim) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
}

// PortReadByte implements Ports.
func (s *Sim) PortReadByte(port uint16) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ports[port]
}

// PortWriteByte implements Ports.
func (s *Sim) PortWriteByte(port uint16, val uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports[port] = val
}

// DeliveredTo returns how many interrupts on vector v a handler has serviced.
func (s *Sim) DeliveredTo(v Vector) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byVector[v]
}

// Stats returns a snapshot of the counters.
func (s *Sim) Stats() SimStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

var (
	_ CPU   = (*Sim)(nil)
	_ Ports = (*Sim)(nil)
)
