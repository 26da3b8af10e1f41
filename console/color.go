// Package console models the VGA text-mode display the kernel writes to, and
// renders it on a host terminal.
package console

import "fmt"

// Color is one of the 16 VGA text-mode colors.
type Color uint8

const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGray
	DarkGray
	LightBlue
	LightGreen
	LightCyan
	LightRed
	Pink
	Yellow
	White
)

var colorNames = [...]string{
	"black", "blue", "green", "cyan", "red", "magenta", "brown", "light-gray",
	"dark-gray", "light-blue", "light-green", "light-cyan", "light-red", "pink", "yellow", "white",
}

func (c Color) String() string {
	if int(c) < len(colorNames) {
		return colorNames[c]
	}
	return fmt.Sprintf("color(%d)", uint8(c))
}

// ParseColor parses a color name as printed by Color.String.
func ParseColor(s string) (Color, error) {
	for i, name := range colorNames {
		if name == s {
			return Color(i), nil
		}
	}
	return 0, fmt.Errorf("console: unknown color %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler so colors can be named in
// config files.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ColorCode is a VGA attribute byte: background in the high nibble,
// foreground in the low nibble.
type ColorCode uint8

// NewColorCode combines a foreground and background color.
func NewColorCode(fg, bg Color) ColorCode {
	return ColorCode(uint8(bg)<<4 | uint8(fg)&0x0F)
}

// DefaultColorCode is yellow on black.
var DefaultColorCode = NewColorCode(Yellow, Black)

// Foreground returns the foreground color.
func (c ColorCode) Foreground() Color { return Color(c & 0x0F) }

// Background returns the background color.
func (c ColorCode) Background() Color { return Color(c >> 4 & 0x0F) }
