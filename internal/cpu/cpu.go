// Package cpu abstracts the processor operations the kernel core depends on:
// the interrupt-enable flag, halting, and port I/O.
package cpu

// Vector identifies an interrupt line after PIC remapping.
type Vector uint8

const (
	// PICOffset is where the primary PIC's lines are remapped to.
	PICOffset Vector = 32

	// VectorTimer is raised by the programmable interval timer.
	VectorTimer = PICOffset

	// VectorKeyboard is raised by the PS/2 keyboard controller.
	VectorKeyboard = PICOffset + 1
)

// KeyboardDataPort is the PS/2 controller port that holds the last scancode.
const KeyboardDataPort uint16 = 0x60

// Handler services one interrupt. Handlers must not block and must not
// allocate from the kernel heap.
type Handler func(Vector)

// CPU is the set of privileged operations used by the scheduler and the heap.
type CPU interface {
	// EnableInterrupts sets the interrupt flag (sti).
	EnableInterrupts()

	// DisableInterrupts clears the interrupt flag (cli).
	DisableInterrupts()

	// InterruptsEnabled reports the current state of the interrupt flag.
	InterruptsEnabled() bool

	// EnableAndHalt atomically enables interrupts and halts until the next
	// interrupt (sti; hlt). An interrupt that became pending while the flag
	// was clear is delivered immediately and EnableAndHalt returns.
	EnableAndHalt()

	// Halt stops instruction execution until the next interrupt.
	Halt()
}

// Ports gives access to the I/O port space.
type Ports interface {
	PortReadByte(port uint16) uint8
	PortWriteByte(port uint16, val uint8)
}

// WithoutInterrupts runs fn with interrupts disabled and restores the previous
// state of the interrupt flag afterwards.
func WithoutInterrupts(c CPU, fn func()) {
	enabled := c.InterruptsEnabled()
	if enabled {
		c.DisableInterrupts()
		defer c.EnableInterrupts()
	}
	fn()
}
