package console

import (
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Sink receives text printed by kernel tasks.
type Sink interface {
	Print(s string)
	PrintColored(s string, c ColorCode)
}

// vgaToANSI maps VGA colors to terminal foreground attributes. Background
// attributes are the foreground ones plus 10.
var vgaToANSI = [16]color.Attribute{
	Black:      color.FgBlack,
	Blue:       color.FgBlue,
	Green:      color.FgGreen,
	Cyan:       color.FgCyan,
	Red:        color.FgRed,
	Magenta:    color.FgMagenta,
	Brown:      color.FgYellow,
	LightGray:  color.FgWhite,
	DarkGray:   color.FgHiBlack,
	LightBlue:  color.FgHiBlue,
	LightGreen: color.FgHiGreen,
	LightCyan:  color.FgHiCyan,
	LightRed:   color.FgHiRed,
	Pink:       color.FgHiMagenta,
	Yellow:     color.FgHiYellow,
	White:      color.FgHiWhite,
}

// TerminalSink renders kernel output on a host terminal with ANSI colors.
type TerminalSink struct {
	mu      sync.Mutex
	w       io.Writer
	colored bool
	def     ColorCode
}

// NewTerminalSink writes to f, using colors only when f is a terminal.
func NewTerminalSink(f *os.File) *TerminalSink {
	tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	return NewTerminalSinkWriter(f, tty)
}

// NewTerminalSinkWriter writes to w, with or without ANSI colors.
func NewTerminalSinkWriter(w io.Writer, colored bool) *TerminalSink {
	return &TerminalSink{w: w, colored: colored, def: DefaultColorCode}
}

// Print implements Sink using the default color.
func (s *TerminalSink) Print(str string) {
	s.PrintColored(str, s.def)
}

// PrintColored implements Sink.
func (s *TerminalSink) PrintColored(str string, c ColorCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.colored {
		_, _ = io.WriteString(s.w, str)
		return
	}
	fg := vgaToANSI[c.Foreground()]
	bg := vgaToANSI[c.Background()] + 10
	p := color.New(fg, bg)
	p.EnableColor()
	_, _ = p.Fprint(s.w, str)
}

type multiSink []Sink

func (m multiSink) Print(s string) {
	for _, sink := range m {
		sink.Print(s)
	}
}

func (m multiSink) PrintColored(s string, c ColorCode) {
	for _, sink := range m {
		sink.PrintColored(s, c)
	}
}

// Tee returns a Sink that prints to every sink in order.
func Tee(sinks ...Sink) Sink {
	return multiSink(sinks)
}

var (
	_ Sink = (*TextBuffer)(nil)
	_ Sink = (*TerminalSink)(nil)
)
