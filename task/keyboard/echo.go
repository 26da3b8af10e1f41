package keyboard

import (
	"sync/atomic"

	"github.com/joshuapare/kcore/console"
	"github.com/joshuapare/kcore/task"
)

// Banner is text printed in its own colors when a hotkey is pressed.
type Banner struct {
	Text  string
	Color console.ColorCode
}

// Hotkeys maps a key name (a single character, or a KeyCode name such as
// "Escape") to the banner it prints instead of echoing the key.
type Hotkeys map[string]Banner

// EchoTask reads the scancode stream forever, echoing characters and raw key
// names to a sink and printing banners for hotkeys. Modifier keys are only
// echoed when bound to a hotkey. It never completes.
type EchoTask struct {
	stream  *ScancodeStream
	decoder *Decoder
	sink    console.Sink
	hotkeys Hotkeys

	keys atomic.Uint64
}

// NewEchoTask returns the echo future. hotkeys may be nil.
func NewEchoTask(stream *ScancodeStream, sink console.Sink, hotkeys Hotkeys) *EchoTask {
	return &EchoTask{
		stream:  stream,
		decoder: NewDecoder(),
		sink:    sink,
		hotkeys: hotkeys,
	}
}

// Poll implements task.Future. It drains every queued scancode before
// returning Pending.
func (t *EchoTask) Poll(cx *task.Context) task.Poll {
	for {
		b, p := t.stream.PollNext(cx)
		if p == task.Pending {
			return task.Pending
		}
		key, ok := t.decoder.Feed(b)
		if !ok {
			continue
		}
		t.keys.Add(1)
		t.handle(key)
	}
}

func (t *EchoTask) handle(key DecodedKey) {
	name := key.Name()
	if !key.IsRune() && key.Code.IsModifier() {
		if _, ok := t.hotkeys[name]; !ok {
			return
		}
	}
	if banner, ok := t.hotkeys[name]; ok {
		t.sink.PrintColored(banner.Text, banner.Color)
		return
	}
	t.sink.Print(name)
}

// Keys returns the number of key presses decoded so far. It is safe to call
// while the task is running.
func (t *EchoTask) Keys() uint64 { return t.keys.Load() }

var _ task.Future = (*EchoTask)(nil)
