package alloc

import (
	"fmt"

	"github.com/joshuapare/kcore/internal/buf"
	"github.com/joshuapare/kcore/internal/layout"
)

// BlockSizes are the default size classes. Each class is also the alignment
// of its blocks, which is only sound because every class is a power of two.
var BlockSizes = []uintptr{8, 16, 32, 64, 128, 256, 512, 1024, 2048}

// listNodeSize and listNodeAlign describe the node written into a freed block
// while it sits on a size-class list: a single word holding the next address.
const (
	listNodeSize  = buf.WordSize
	listNodeAlign = buf.WordSize
)

// SizeClassConfig defines the size classes of a FixedSizeBlockAllocator.
type SizeClassConfig struct {
	// Name for this configuration (for logs and stats output)
	Name string

	// Sizes must be ascending powers of two.
	Sizes []uintptr
}

// DefaultConfig is used when no configuration is given.
var DefaultConfig = SizeClassConfig{
	Name:  "PowerOfTwo8to2048",
	Sizes: BlockSizes,
}

// sizeClassTable holds validated size classes.
type sizeClassTable struct {
	config SizeClassConfig
	sizes  []uintptr
}

// newSizeClassTable validates config and copies its classes.
func newSizeClassTable(config SizeClassConfig) (*sizeClassTable, error) {
	if len(config.Sizes) == 0 {
		return nil, fmt.Errorf("%w: no size classes", ErrBadConfig)
	}
	sizes := make([]uintptr, len(config.Sizes))
	for i, s := range config.Sizes {
		if !layout.IsPowerOfTwo(s) {
			return nil, fmt.Errorf("%w: class %d (%d) is not a power of two", ErrBadConfig, i, s)
		}
		if i > 0 && s <= sizes[i-1] {
			return nil, fmt.Errorf("%w: class %d (%d) is not ascending", ErrBadConfig, i, s)
		}
		sizes[i] = s
	}
	return &sizeClassTable{config: config, sizes: sizes}, nil
}

// listIndex returns the index of the smallest class that can hold l, or
// false when l is larger than every class.
func (t *sizeClassTable) listIndex(l layout.Layout) (int, bool) {
	required := l.Required()
	for i, s := range t.sizes {
		if s >= required {
			return i, true
		}
	}
	return 0, false
}

// NumClasses returns the number of size classes.
func (t *sizeClassTable) NumClasses() int {
	return len(t.sizes)
}

// String returns a human-readable description of the size class table.
func (t *sizeClassTable) String() string {
	return t.config.Name
}

// ListIndex returns the index into BlockSizes of the smallest class that can
// hold l (required size is max(size, align)), or false when no class fits.
func ListIndex(l layout.Layout) (int, bool) {
	required := l.Required()
	for i, s := range BlockSizes {
		if s >= required {
			return i, true
		}
	}
	return 0, false
}
