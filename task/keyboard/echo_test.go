package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kcore/console"
	"github.com/joshuapare/kcore/task"
)

type printed struct {
	text  string
	color console.ColorCode
	plain bool
}

type fakeSink struct {
	out []printed
}

func (f *fakeSink) Print(s string) { f.out = append(f.out, printed{text: s, plain: true}) }

func (f *fakeSink) PrintColored(s string, c console.ColorCode) {
	f.out = append(f.out, printed{text: s, color: c})
}

func (f *fakeSink) text() string {
	var s string
	for _, p := range f.out {
		s += p.text
	}
	return s
}

func feed(t *testing.T, q *ScancodeQueue, codes []byte) {
	t.Helper()
	for _, b := range codes {
		require.NoError(t, q.AddScancode(b))
	}
}

func TestEchoTask_EchoesKeys(t *testing.T) {
	q, s := newStream(t, 128)
	sink := &fakeSink{}
	echo := NewEchoTask(s, sink, nil)
	cx := task.NewContext(task.NoopWaker())

	require.Equal(t, task.Pending, echo.Poll(cx))
	feed(t, q, Encode("Hi!"))
	feed(t, q, EncodeKey(KeyArrowUp))
	require.Equal(t, task.Pending, echo.Poll(cx), "the echo task never completes")

	assert.Equal(t, "Hi!ArrowUp", sink.text())
	assert.Equal(t, uint64(6), echo.Keys(), "two shift presses are decoded but not echoed")
}

func TestEchoTask_Hotkeys(t *testing.T) {
	q, s := newStream(t, 128)
	sink := &fakeSink{}
	name := console.NewColorCode(console.Black, console.White)
	icon := console.NewColorCode(console.Yellow, console.Blue)
	echo := NewEchoTask(s, sink, Hotkeys{
		"n":      {Text: "\n name: kcore", Color: name},
		"Escape": {Text: "\n <icon>", Color: icon},
	})

	feed(t, q, Encode("xn"))
	feed(t, q, EncodeKey(KeyEscape))
	echo.Poll(task.NewContext(task.NoopWaker()))

	require.Len(t, sink.out, 3)
	assert.Equal(t, printed{text: "x", plain: true}, sink.out[0])
	assert.Equal(t, printed{text: "\n name: kcore", color: name}, sink.out[1])
	assert.Equal(t, printed{text: "\n <icon>", color: icon}, sink.out[2])
}

func TestEchoTask_RendersToTextBuffer(t *testing.T) {
	q, s := newStream(t, 128)
	screen := console.NewTextBuffer()
	echo := NewEchoTask(s, screen, nil)

	feed(t, q, Encode("kernel\nok"))
	echo.Poll(task.NewContext(task.NoopWaker()))

	assert.Equal(t, "kernel", screen.Row(console.BufferHeight-2))
	assert.Equal(t, "ok", screen.Row(console.BufferHeight-1))
}
