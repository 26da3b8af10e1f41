package keyboard

import "unicode"

// Scancode set 1 framing.
const (
	extendedPrefix byte = 0xE0
	breakBit       byte = 0x80
)

// keyDef describes one key of the US 104-key layout.
type keyDef struct {
	code  KeyCode
	lower rune // produced without shift (0 = not printable)
	upper rune // produced with shift
}

func printable(lower, upper rune) keyDef { return keyDef{code: KeyPrintable, lower: lower, upper: upper} }

// set1 maps non-extended make codes to keys.
var set1 = map[byte]keyDef{
	0x01: {code: KeyEscape},
	0x02: printable('1', '!'), 0x03: printable('2', '@'), 0x04: printable('3', '#'),
	0x05: printable('4', '$'), 0x06: printable('5', '%'), 0x07: printable('6', '^'),
	0x08: printable('7', '&'), 0x09: printable('8', '*'), 0x0A: printable('9', '('),
	0x0B: printable('0', ')'), 0x0C: printable('-', '_'), 0x0D: printable('=', '+'),
	0x0E: {code: KeyBackspace, lower: '\b', upper: '\b'},
	0x0F: {code: KeyTab, lower: '\t', upper: '\t'},
	0x10: printable('q', 'Q'), 0x11: printable('w', 'W'), 0x12: printable('e', 'E'),
	0x13: printable('r', 'R'), 0x14: printable('t', 'T'), 0x15: printable('y', 'Y'),
	0x16: printable('u', 'U'), 0x17: printable('i', 'I'), 0x18: printable('o', 'O'),
	0x19: printable('p', 'P'), 0x1A: printable('[', '{'), 0x1B: printable(']', '}'),
	0x1C: {code: KeyEnter, lower: '\n', upper: '\n'},
	0x1D: {code: KeyLControl},
	0x1E: printable('a', 'A'), 0x1F: printable('s', 'S'), 0x20: printable('d', 'D'),
	0x21: printable('f', 'F'), 0x22: printable('g', 'G'), 0x23: printable('h', 'H'),
	0x24: printable('j', 'J'), 0x25: printable('k', 'K'), 0x26: printable('l', 'L'),
	0x27: printable(';', ':'), 0x28: printable('\'', '"'), 0x29: printable('`', '~'),
	0x2A: {code: KeyLShift},
	0x2B: printable('\\', '|'),
	0x2C: printable('z', 'Z'), 0x2D: printable('x', 'X'), 0x2E: printable('c', 'C'),
	0x2F: printable('v', 'V'), 0x30: printable('b', 'B'), 0x31: printable('n', 'N'),
	0x32: printable('m', 'M'), 0x33: printable(',', '<'), 0x34: printable('.', '>'),
	0x35: printable('/', '?'),
	0x36: {code: KeyRShift},
	0x37: {code: KeyKeypadStar, lower: '*', upper: '*'},
	0x38: {code: KeyLAlt},
	0x39: {code: KeySpace, lower: ' ', upper: ' '},
	0x3A: {code: KeyCapsLock},
	0x3B: {code: KeyF1}, 0x3C: {code: KeyF2}, 0x3D: {code: KeyF3}, 0x3E: {code: KeyF4},
	0x3F: {code: KeyF5}, 0x40: {code: KeyF6}, 0x41: {code: KeyF7}, 0x42: {code: KeyF8},
	0x43: {code: KeyF9}, 0x44: {code: KeyF10},
	0x45: {code: KeyNumLock},
	0x46: {code: KeyScrollLock},
	0x47: {code: KeyKeypad7, lower: '7', upper: '7'}, 0x48: {code: KeyKeypad8, lower: '8', upper: '8'},
	0x49: {code: KeyKeypad9, lower: '9', upper: '9'}, 0x4A: {code: KeyKeypadMinus, lower: '-', upper: '-'},
	0x4B: {code: KeyKeypad4, lower: '4', upper: '4'}, 0x4C: {code: KeyKeypad5, lower: '5', upper: '5'},
	0x4D: {code: KeyKeypad6, lower: '6', upper: '6'}, 0x4E: {code: KeyKeypadPlus, lower: '+', upper: '+'},
	0x4F: {code: KeyKeypad1, lower: '1', upper: '1'}, 0x50: {code: KeyKeypad2, lower: '2', upper: '2'},
	0x51: {code: KeyKeypad3, lower: '3', upper: '3'}, 0x52: {code: KeyKeypad0, lower: '0', upper: '0'},
	0x53: {code: KeyKeypadPeriod, lower: '.', upper: '.'},
	0x57: {code: KeyF11}, 0x58: {code: KeyF12},
}

// set1Extended maps make codes that follow an 0xE0 prefix.
var set1Extended = map[byte]keyDef{
	0x1C: {code: KeyKeypadEnter, lower: '\n', upper: '\n'},
	0x1D: {code: KeyRControl},
	0x35: {code: KeyKeypadSlash, lower: '/', upper: '/'},
	0x38: {code: KeyRAlt},
	0x47: {code: KeyHome},
	0x48: {code: KeyArrowUp},
	0x49: {code: KeyPageUp},
	0x4B: {code: KeyArrowLeft},
	0x4D: {code: KeyArrowRight},
	0x4F: {code: KeyEnd},
	0x50: {code: KeyArrowDown},
	0x51: {code: KeyPageDown},
	0x52: {code: KeyInsert},
	0x53: {code: KeyDelete},
	0x5B: {code: KeyLWin},
	0x5C: {code: KeyRWin},
	0x5D: {code: KeyApps},
}

// DecodedKey is either a character (Rune != 0) or a raw key.
type DecodedKey struct {
	Rune rune
	Code KeyCode
}

// IsRune reports whether the key produced a character.
func (k DecodedKey) IsRune() bool { return k.Rune != 0 }

// Name returns the character as a string, or the key name.
func (k DecodedKey) Name() string {
	if k.IsRune() {
		return string(k.Rune)
	}
	return k.Code.String()
}

// Decoder turns scancode set 1 bytes into keys using the US 104-key layout.
// Control keys are tracked but do not change the produced characters.
type Decoder struct {
	extended bool

	lshift, rshift bool
	lctrl, rctrl   bool
	capsLock       bool
	numLock        bool
}

// NewDecoder returns a decoder with num lock on and caps lock off.
func NewDecoder() *Decoder {
	return &Decoder{numLock: true}
}

// Feed consumes one scancode byte. It returns a key for every key press that
// is complete after b; releases and prefixes produce nothing.
func (d *Decoder) Feed(b byte) (DecodedKey, bool) {
	if b == extendedPrefix {
		d.extended = true
		return DecodedKey{}, false
	}

	table := set1
	if d.extended {
		table = set1Extended
		d.extended = false
	}
	released := b&breakBit != 0
	def, ok := table[b&^breakBit]
	if !ok {
		return DecodedKey{}, false
	}

	switch def.code {
	case KeyLShift:
		d.lshift = !released
	case KeyRShift:
		d.rshift = !released
	case KeyLControl:
		d.lctrl = !released
	case KeyRControl:
		d.rctrl = !released
	case KeyCapsLock:
		if !released {
			d.capsLock = !d.capsLock
		}
	case KeyNumLock:
		if !released {
			d.numLock = !d.numLock
		}
	}
	if released {
		return DecodedKey{}, false
	}
	return d.resolve(def), true
}

func (d *Decoder) resolve(def keyDef) DecodedKey {
	if def.lower == 0 {
		return DecodedKey{Code: def.code}
	}
	if isKeypad(def.code) && !d.numLock {
		return DecodedKey{Code: def.code}
	}

	shifted := d.lshift || d.rshift
	r := def.lower
	if unicode.IsLetter(def.lower) {
		if shifted != d.capsLock {
			r = def.upper
		}
	} else if shifted {
		r = def.upper
	}
	return DecodedKey{Rune: r, Code: def.code}
}

func isKeypad(k KeyCode) bool {
	return k >= KeyKeypad0 && k <= KeyKeypadSlash
}

// Modifiers reports the current shift, control and lock state.
func (d *Decoder) Modifiers() (shift, ctrl, capsLock, numLock bool) {
	return d.lshift || d.rshift, d.lctrl || d.rctrl, d.capsLock, d.numLock
}
