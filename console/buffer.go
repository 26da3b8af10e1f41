package console

import (
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	// BufferWidth is the number of columns of the text buffer.
	BufferWidth = 80
	// BufferHeight is the number of rows of the text buffer.
	BufferHeight = 25

	// unprintable replaces characters code page 437 cannot represent.
	unprintable byte = 0xFE
)

// Char is one screen cell.
type Char struct {
	ASCII byte
	Color ColorCode
}

// TextBuffer models the 80x25 VGA text buffer. Text is always written to the
// bottom row; a newline or a full row scrolls everything up by one line.
type TextBuffer struct {
	mu     sync.Mutex
	chars  [BufferHeight][BufferWidth]Char
	column int
	color  ColorCode
}

// NewTextBuffer returns a blank buffer using DefaultColorCode.
func NewTextBuffer() *TextBuffer {
	b := &TextBuffer{color: DefaultColorCode}
	b.clear()
	return b
}

// SetColor sets the color used by Write.
func (b *TextBuffer) SetColor(c ColorCode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.color = c
}

// Write implements io.Writer. Bytes are interpreted as UTF-8.
func (b *TextBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeString(string(p), b.color)
	return len(p), nil
}

// Print implements Sink.
func (b *TextBuffer) Print(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeString(s, b.color)
}

// PrintColored implements Sink. The buffer's own color is left unchanged.
func (b *TextBuffer) PrintColored(s string, c ColorCode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeString(s, c)
}

func (b *TextBuffer) writeString(s string, c ColorCode) {
	for _, r := range s {
		switch {
		case r == '\n':
			b.newLine()
		case r == '\b':
			if b.column > 0 {
				b.column--
				b.chars[BufferHeight-1][b.column] = Char{ASCII: ' ', Color: c}
			}
		case r >= 0x20 && r <= 0x7E:
			b.writeByte(byte(r), c)
		default:
			b.writeByte(encodeCP437(r), c)
		}
	}
}

// encodeCP437 maps r to its code page 437 byte.
func encodeCP437(r rune) byte {
	if r < 0x20 || r == utf8.RuneError {
		return unprintable
	}
	if enc, ok := charmap.CodePage437.EncodeRune(r); ok {
		return enc
	}
	return unprintable
}

func (b *TextBuffer) writeByte(c byte, color ColorCode) {
	if b.column >= BufferWidth {
		b.newLine()
	}
	b.chars[BufferHeight-1][b.column] = Char{ASCII: c, Color: color}
	b.column++
}

func (b *TextBuffer) newLine() {
	copy(b.chars[:BufferHeight-1], b.chars[1:])
	b.clearRow(BufferHeight - 1)
	b.column = 0
}

func (b *TextBuffer) clearRow(row int) {
	for col := range b.chars[row] {
		b.chars[row][col] = Char{ASCII: ' ', Color: b.color}
	}
}

func (b *TextBuffer) clear() {
	for row := range b.chars {
		b.clearRow(row)
	}
	b.column = 0
}

// Clear blanks the screen.
func (b *TextBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clear()
}

// Cell returns the cell at row, col.
func (b *TextBuffer) Cell(row, col int) Char {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chars[row][col]
}

// Row returns row decoded from code page 437 with trailing blanks trimmed.
func (b *TextBuffer) Row(row int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	for _, c := range b.chars[row] {
		sb.WriteRune(charmap.CodePage437.DecodeByte(c.ASCII))
	}
	return strings.TrimRight(sb.String(), " ")
}

// String returns all non-empty rows joined by newlines.
func (b *TextBuffer) String() string {
	var rows []string
	for row := range BufferHeight {
		if line := b.Row(row); line != "" || len(rows) > 0 {
			rows = append(rows, line)
		}
	}
	return strings.Join(rows, "\n")
}
