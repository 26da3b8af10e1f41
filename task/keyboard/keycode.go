package keyboard

import "fmt"

// KeyCode names a physical key.
type KeyCode uint8

const (
	KeyUnknown KeyCode = iota
	KeyEscape
	KeyBackspace
	KeyTab
	KeyEnter
	KeySpace
	KeyLShift
	KeyRShift
	KeyLControl
	KeyRControl
	KeyLAlt
	KeyRAlt
	KeyLWin
	KeyRWin
	KeyApps
	KeyCapsLock
	KeyNumLock
	KeyScrollLock
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyKeypadEnter
	KeyKeypad0
	KeyKeypad1
	KeyKeypad2
	KeyKeypad3
	KeyKeypad4
	KeyKeypad5
	KeyKeypad6
	KeyKeypad7
	KeyKeypad8
	KeyKeypad9
	KeyKeypadPeriod
	KeyKeypadPlus
	KeyKeypadMinus
	KeyKeypadStar
	KeyKeypadSlash
	// KeyPrintable covers every key whose meaning is the character it
	// produces; DecodedKey.Rune carries the character.
	KeyPrintable
)

var keyNames = map[KeyCode]string{
	KeyUnknown: "Unknown", KeyEscape: "Escape", KeyBackspace: "Backspace", KeyTab: "Tab",
	KeyEnter: "Enter", KeySpace: "Spacebar", KeyLShift: "LShift", KeyRShift: "RShift",
	KeyLControl: "LControl", KeyRControl: "RControl", KeyLAlt: "LAlt", KeyRAlt: "RAltGr",
	KeyLWin: "LWin", KeyRWin: "RWin", KeyApps: "Apps", KeyCapsLock: "CapsLock",
	KeyNumLock: "NumpadLock", KeyScrollLock: "ScrollLock",
	KeyF1: "F1", KeyF2: "F2", KeyF3: "F3", KeyF4: "F4", KeyF5: "F5", KeyF6: "F6",
	KeyF7: "F7", KeyF8: "F8", KeyF9: "F9", KeyF10: "F10", KeyF11: "F11", KeyF12: "F12",
	KeyArrowUp: "ArrowUp", KeyArrowDown: "ArrowDown", KeyArrowLeft: "ArrowLeft", KeyArrowRight: "ArrowRight",
	KeyHome: "Home", KeyEnd: "End", KeyPageUp: "PageUp", KeyPageDown: "PageDown",
	KeyInsert: "Insert", KeyDelete: "Delete", KeyKeypadEnter: "NumpadEnter",
	KeyKeypad0: "Numpad0", KeyKeypad1: "Numpad1", KeyKeypad2: "Numpad2", KeyKeypad3: "Numpad3",
	KeyKeypad4: "Numpad4", KeyKeypad5: "Numpad5", KeyKeypad6: "Numpad6", KeyKeypad7: "Numpad7",
	KeyKeypad8: "Numpad8", KeyKeypad9: "Numpad9", KeyKeypadPeriod: "NumpadPeriod",
	KeyKeypadPlus: "NumpadAdd", KeyKeypadMinus: "NumpadSubtract", KeyKeypadStar: "NumpadMultiply",
	KeyKeypadSlash: "NumpadDivide", KeyPrintable: "Printable",
}

func (k KeyCode) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KeyCode(%d)", uint8(k))
}

// IsModifier reports whether k is a shift, control, alt or lock key.
func (k KeyCode) IsModifier() bool {
	switch k {
	case KeyLShift, KeyRShift, KeyLControl, KeyRControl, KeyLAlt, KeyRAlt,
		KeyCapsLock, KeyNumLock, KeyScrollLock:
		return true
	}
	return false
}
