// Package keys holds the platform-neutral keyboard data model: physical key
// positions, logical keys, modifier sets and key events.
package keys

import (
	"fmt"
	"strings"
)

// PhysicalKey identifies a key by its position on an ANSI-US keyboard.
//
// The numeric values are wire discriminants. New keys are appended only.
type PhysicalKey uint16

const (
	AltLeft PhysicalKey = iota
	AltRight
	ControlLeft
	ControlRight
	Backspace
	CapsLock
	Delete
	DownArrow
	End
	Escape
	F1
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12
	F13
	F14
	F15
	F16
	F17
	F18
	F19
	F2
	F20
	Home
	LeftArrow
	MetaLeft
	MetaRight
	PageDown
	PageUp
	Return
	ShiftLeft
	ShiftRight
	Space
	Tab
	UpArrow
	PrintScreen
	ScrollLock
	Pause
	NumLock
	BackQuote
	Num1
	Num2
	Num3
	Num4
	Num5
	Num6
	Num7
	Num8
	Num9
	Num0
	Minus
	Equal
	KeyQ
	KeyW
	KeyE
	KeyR
	KeyT
	KeyY
	KeyU
	KeyI
	KeyO
	KeyP
	LeftBracket
	RightBracket
	KeyA
	KeyS
	KeyD
	KeyF
	KeyG
	KeyH
	KeyJ
	KeyK
	KeyL
	SemiColon
	Quote
	BackSlash
	KeyZ
	KeyX
	KeyC
	KeyV
	KeyB
	KeyN
	KeyM
	Comma
	Dot
	Slash
	Insert
	KpReturn
	KpMinus
	KpPlus
	KpMultiply
	KpDivide
	KpDecimal
	Kp0
	Kp1
	Kp2
	Kp3
	Kp4
	Kp5
	Kp6
	Kp7
	Kp8
	Kp9
	Function
	Help
	RightArrow
	KpDelete
	VolumeDown
	VolumeUp
	VolumeMute
	Apps
	IntlBackslash

	physicalKeyCount
)

var physicalNames = [physicalKeyCount]string{
	"AltLeft", "AltRight", "ControlLeft", "ControlRight", "Backspace", "CapsLock", "Delete",
	"DownArrow", "End", "Escape", "F1", "F3", "F4", "F5", "F6", "F7", "F8", "F9", "F10", "F11",
	"F12", "F13", "F14", "F15", "F16", "F17", "F18", "F19", "F2", "F20", "Home", "LeftArrow",
	"MetaLeft", "MetaRight", "PageDown", "PageUp", "Return", "ShiftLeft", "ShiftRight", "Space",
	"Tab", "UpArrow", "PrintScreen", "ScrollLock", "Pause", "NumLock", "BackQuote", "Num1",
	"Num2", "Num3", "Num4", "Num5", "Num6", "Num7", "Num8", "Num9", "Num0", "Minus", "Equal",
	"KeyQ", "KeyW", "KeyE", "KeyR", "KeyT", "KeyY", "KeyU", "KeyI", "KeyO", "KeyP",
	"LeftBracket", "RightBracket", "KeyA", "KeyS", "KeyD", "KeyF", "KeyG", "KeyH", "KeyJ",
	"KeyK", "KeyL", "SemiColon", "Quote", "BackSlash", "KeyZ", "KeyX", "KeyC", "KeyV", "KeyB",
	"KeyN", "KeyM", "Comma", "Dot", "Slash", "Insert", "KpReturn", "KpMinus", "KpPlus",
	"KpMultiply", "KpDivide", "KpDecimal", "Kp0", "Kp1", "Kp2", "Kp3", "Kp4", "Kp5", "Kp6",
	"Kp7", "Kp8", "Kp9", "Function", "Help", "RightArrow", "KpDelete", "VolumeDown", "VolumeUp",
	"VolumeMute", "Apps", "IntlBackslash",
}

// AllPhysicalKeys returns every defined physical key in discriminant order.
func AllPhysicalKeys() []PhysicalKey {
	out := make([]PhysicalKey, 0, physicalKeyCount)
	for p := PhysicalKey(0); p < physicalKeyCount; p++ {
		out = append(out, p)
	}
	return out
}

// Valid reports whether p is a defined physical key.
func (p PhysicalKey) Valid() bool { return p < physicalKeyCount }

func (p PhysicalKey) String() string {
	if !p.Valid() {
		return fmt.Sprintf("PhysicalKey(%d)", uint16(p))
	}
	return physicalNames[p]
}

// ParsePhysicalKey accepts the names produced by String, case-insensitively.
func ParsePhysicalKey(s string) (PhysicalKey, error) {
	for i, name := range physicalNames {
		if strings.EqualFold(name, s) {
			return PhysicalKey(i), nil
		}
	}
	return 0, fmt.Errorf("keys: unknown physical key %q", s)
}

// IsModifier reports whether p is a Shift, Control, Alt or Meta key.
func (p PhysicalKey) IsModifier() bool {
	switch p {
	case ShiftLeft, ShiftRight, ControlLeft, ControlRight,
		AltLeft, AltRight, MetaLeft, MetaRight:
		return true
	}
	return false
}

// Modifier returns the positional modifier bit held down by p, or ModNone.
func (p PhysicalKey) Modifier() Modifiers {
	switch p {
	case ShiftLeft:
		return ModLeftShift
	case ShiftRight:
		return ModRightShift
	case ControlLeft:
		return ModLeftCtrl
	case ControlRight:
		return ModRightCtrl
	case AltLeft:
		return ModLeftAlt
	case AltRight:
		return ModRightAlt
	case MetaLeft:
		return ModLeftMeta
	case MetaRight:
		return ModRightMeta
	}
	return ModNone
}

// Logical returns the key p produces on a US layout without modifiers.
func (p PhysicalKey) Logical() LogicalKey {
	if r, ok := usChars[p]; ok {
		return Char(r)
	}
	if n, ok := physicalNamed[p]; ok {
		return Named(n)
	}
	switch {
	case p == F1:
		return FunctionKey(1)
	case p == F2:
		return FunctionKey(2)
	case p >= F3 && p <= F19:
		return FunctionKey(uint8(p-F3) + 3)
	case p == F20:
		return FunctionKey(20)
	case p >= Kp0 && p <= Kp9:
		return Numpad(uint8(p - Kp0))
	}
	return Physical(p)
}

var usChars = map[PhysicalKey]rune{
	Backspace: '\b', Delete: '\x7f', Escape: '\x1b', Return: '\r', Space: ' ', Tab: '\t',
	BackQuote: '`', Num1: '1', Num2: '2', Num3: '3', Num4: '4', Num5: '5', Num6: '6',
	Num7: '7', Num8: '8', Num9: '9', Num0: '0', Minus: '-', Equal: '=',
	KeyQ: 'q', KeyW: 'w', KeyE: 'e', KeyR: 'r', KeyT: 't', KeyY: 'y', KeyU: 'u', KeyI: 'i',
	KeyO: 'o', KeyP: 'p', LeftBracket: '[', RightBracket: ']',
	KeyA: 'a', KeyS: 's', KeyD: 'd', KeyF: 'f', KeyG: 'g', KeyH: 'h', KeyJ: 'j', KeyK: 'k',
	KeyL: 'l', SemiColon: ';', Quote: '\'', BackSlash: '\\',
	KeyZ: 'z', KeyX: 'x', KeyC: 'c', KeyV: 'v', KeyB: 'b', KeyN: 'n', KeyM: 'm',
	Comma: ',', Dot: '.', Slash: '/', KpReturn: '\r', KpDelete: '\x7f',
}

var physicalNamed = map[PhysicalKey]NamedKey{
	AltLeft: LeftAlt, AltRight: RightAlt, ControlLeft: LeftControl, ControlRight: RightControl,
	ShiftLeft: LeftShift, ShiftRight: RightShift, MetaLeft: LeftWindows, MetaRight: RightWindows,
	CapsLock: CapsLockKey, NumLock: NumLockKey, ScrollLock: ScrollLockKey,
	DownArrow: Down, UpArrow: Up, LeftArrow: Left, RightArrow: Right,
	End: EndKey, Home: HomeKey, PageDown: PageDownKey, PageUp: PageUpKey, Insert: InsertKey,
	PrintScreen: PrintScreenKey, Pause: PauseKey, Help: HelpKey,
	KpMinus: Subtract, KpPlus: Add, KpMultiply: Multiply, KpDivide: Divide, KpDecimal: Decimal,
	VolumeDown: VolumeDownKey, VolumeUp: VolumeUpKey, VolumeMute: VolumeMuteKey, Apps: AppsKey,
}
