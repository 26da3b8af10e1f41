package heap

import (
	"github.com/joshuapare/kcore/heap/alloc"
	"github.com/joshuapare/kcore/heap/region"
	"github.com/joshuapare/kcore/internal/cpu"
	"github.com/joshuapare/kcore/internal/layout"
	"github.com/joshuapare/kcore/internal/spinlock"
)

// Locked serializes access to an allocator. Every call runs with interrupts
// disabled (when a CPU is attached) and under a spinlock, so an interrupt
// handler can never observe a half-updated free list and never spins on a
// lock held by the code it interrupted.
type Locked[A alloc.Allocator] struct {
	lock  spinlock.Spinlock
	cpu   cpu.CPU
	inner A
}

// NewLocked wraps inner. c may be nil when interrupts are not modeled.
func NewLocked[A alloc.Allocator](inner A, c cpu.CPU) *Locked[A] {
	return &Locked[A]{cpu: c, inner: inner}
}

// With runs fn with exclusive access to the wrapped allocator.
func (l *Locked[A]) With(fn func(A)) {
	critical := func() {
		l.lock.Acquire()
		defer l.lock.Release()
		fn(l.inner)
	}
	if l.cpu == nil {
		critical()
		return
	}
	cpu.WithoutInterrupts(l.cpu, critical)
}

// Init implements alloc.Allocator.
func (l *Locked[A]) Init(mem *region.Region, start, size uintptr) (err error) {
	l.With(func(a A) { err = a.Init(mem, start, size) })
	return err
}

// Alloc implements alloc.Allocator.
func (l *Locked[A]) Alloc(lay layout.Layout) (addr uintptr, err error) {
	l.With(func(a A) { addr, err = a.Alloc(lay) })
	return addr, err
}

// Dealloc implements alloc.Allocator.
func (l *Locked[A]) Dealloc(addr uintptr, lay layout.Layout) (err error) {
	l.With(func(a A) { err = a.Dealloc(addr, lay) })
	return err
}

// Compile-time interface check
var _ alloc.Allocator = (*Locked[alloc.Allocator])(nil)
