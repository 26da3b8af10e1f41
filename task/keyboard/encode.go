package keyboard

// stroke is the make code of a character and whether it needs shift.
type stroke struct {
	code  byte
	shift bool
}

// strokes maps every printable character to its stroke.
var strokes = func() map[rune]stroke {
	m := make(map[rune]stroke)
	for code, def := range set1 {
		if def.lower == 0 || isKeypad(def.code) {
			continue
		}
		if _, ok := m[def.lower]; !ok {
			m[def.lower] = stroke{code: code}
		}
		if def.upper != def.lower {
			m[def.upper] = stroke{code: code, shift: true}
		}
	}
	return m
}()

const lshiftMake byte = 0x2A

// Encode returns the scancode set 1 make and break codes that type s on a US
// keyboard with caps lock off. Characters with no key are skipped.
func Encode(s string) []byte {
	var out []byte
	for _, r := range s {
		st, ok := strokes[r]
		if !ok {
			continue
		}
		if st.shift {
			out = append(out, lshiftMake)
		}
		out = append(out, st.code, st.code|breakBit)
		if st.shift {
			out = append(out, lshiftMake|breakBit)
		}
	}
	return out
}

// EncodeKey returns the make and break codes of a raw key, or nil if the key
// has no scancode.
func EncodeKey(k KeyCode) []byte {
	for code, def := range set1 {
		if def.code == k && k != KeyPrintable {
			return []byte{code, code | breakBit}
		}
	}
	for code, def := range set1Extended {
		if def.code == k {
			return []byte{extendedPrefix, code, extendedPrefix, code | breakBit}
		}
	}
	return nil
}
