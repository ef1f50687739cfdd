package keys

// Table is a bidirectional map between physical keys and one native code
// space. A physical key has at most one code; a code may be listed for more
// than one key, in which case the first listed key wins the reverse lookup.
type Table struct {
	toCode map[PhysicalKey]uint32
	toPhys map[uint32]PhysicalKey
}

type tableEntry struct {
	key  PhysicalKey
	code uint32
}

func newTable(entries []tableEntry) *Table {
	t := &Table{
		toCode: make(map[PhysicalKey]uint32, len(entries)),
		toPhys: make(map[uint32]PhysicalKey, len(entries)),
	}
	for _, e := range entries {
		t.toCode[e.key] = e.code
		if _, dup := t.toPhys[e.code]; !dup {
			t.toPhys[e.code] = e.key
		}
	}
	return t
}

// Code returns the native code of p.
func (t *Table) Code(p PhysicalKey) (uint32, bool) {
	c, ok := t.toCode[p]
	return c, ok
}

// Key returns the physical key for a native code.
func (t *Table) Key(code uint32) (PhysicalKey, bool) {
	p, ok := t.toPhys[code]
	return p, ok
}

// Len returns the number of mapped physical keys.
func (t *Table) Len() int { return len(t.toCode) }

// Offset returns a copy of t with every code shifted by delta.
func (t *Table) Offset(delta uint32) *Table {
	entries := make([]tableEntry, 0, len(t.toCode))
	for _, p := range AllPhysicalKeys() {
		if c, ok := t.toCode[p]; ok {
			entries = append(entries, tableEntry{p, c + delta})
		}
	}
	// Keep reverse-lookup precedence of the original table.
	out := newTable(entries)
	for code, p := range t.toPhys {
		out.toPhys[code+delta] = p
	}
	return out
}

// Evdev maps physical keys to Linux input event codes (linux/input-event-codes.h).
var Evdev = newTable([]tableEntry{
	{Escape, 1}, {Num1, 2}, {Num2, 3}, {Num3, 4}, {Num4, 5}, {Num5, 6}, {Num6, 7},
	{Num7, 8}, {Num8, 9}, {Num9, 10}, {Num0, 11}, {Minus, 12}, {Equal, 13},
	{Backspace, 14}, {Tab, 15},
	{KeyQ, 16}, {KeyW, 17}, {KeyE, 18}, {KeyR, 19}, {KeyT, 20}, {KeyY, 21}, {KeyU, 22},
	{KeyI, 23}, {KeyO, 24}, {KeyP, 25}, {LeftBracket, 26}, {RightBracket, 27},
	{Return, 28}, {ControlLeft, 29},
	{KeyA, 30}, {KeyS, 31}, {KeyD, 32}, {KeyF, 33}, {KeyG, 34}, {KeyH, 35}, {KeyJ, 36},
	{KeyK, 37}, {KeyL, 38}, {SemiColon, 39}, {Quote, 40}, {BackQuote, 41},
	{ShiftLeft, 42}, {BackSlash, 43},
	{KeyZ, 44}, {KeyX, 45}, {KeyC, 46}, {KeyV, 47}, {KeyB, 48}, {KeyN, 49}, {KeyM, 50},
	{Comma, 51}, {Dot, 52}, {Slash, 53}, {ShiftRight, 54}, {KpMultiply, 55},
	{AltLeft, 56}, {Space, 57}, {CapsLock, 58},
	{F1, 59}, {F2, 60}, {F3, 61}, {F4, 62}, {F5, 63}, {F6, 64}, {F7, 65}, {F8, 66},
	{F9, 67}, {F10, 68}, {NumLock, 69}, {ScrollLock, 70},
	{Kp7, 71}, {Kp8, 72}, {Kp9, 73}, {KpMinus, 74}, {Kp4, 75}, {Kp5, 76}, {Kp6, 77},
	{KpPlus, 78}, {Kp1, 79}, {Kp2, 80}, {Kp3, 81}, {Kp0, 82}, {KpDecimal, 83},
	{KpDelete, 83}, {IntlBackslash, 86}, {F11, 87}, {F12, 88},
	{KpReturn, 96}, {ControlRight, 97}, {KpDivide, 98}, {PrintScreen, 99},
	{AltRight, 100}, {Home, 102}, {UpArrow, 103}, {PageUp, 104}, {LeftArrow, 105},
	{RightArrow, 106}, {End, 107}, {DownArrow, 108}, {PageDown, 109}, {Insert, 110},
	{Delete, 111}, {VolumeMute, 113}, {VolumeDown, 114}, {VolumeUp, 115}, {Pause, 119},
	{MetaLeft, 125}, {MetaRight, 126}, {Apps, 127}, {Help, 138},
	{F13, 183}, {F14, 184}, {F15, 185}, {F16, 186}, {F17, 187}, {F18, 188}, {F19, 189},
	{F20, 190}, {Function, 464},
})

// X11 maps physical keys to X11 keycodes of the evdev keycode set, which are
// the evdev codes shifted by 8.
var X11 = Evdev.Offset(8)

// ScanCodes maps physical keys to Windows set-1 scan codes. Extended keys
// carry 0xE0 in the high byte.
var ScanCodes = newTable([]tableEntry{
	{Escape, 0x01}, {F1, 0x3B}, {F2, 0x3C}, {F3, 0x3D}, {F4, 0x3E}, {F5, 0x3F}, {F6, 0x40},
	{F7, 0x41}, {F8, 0x42}, {F9, 0x43}, {F10, 0x44}, {F11, 0x57}, {F12, 0x58},
	{F13, 0x64}, {F14, 0x65}, {F15, 0x66}, {F16, 0x67}, {F17, 0x68}, {F18, 0x69},
	{F19, 0x6A}, {F20, 0x6B},
	{PrintScreen, 0xE037}, {ScrollLock, 0x46}, {Pause, 0xE046},
	{BackQuote, 0x29}, {Num1, 0x02}, {Num2, 0x03}, {Num3, 0x04}, {Num4, 0x05},
	{Num5, 0x06}, {Num6, 0x07}, {Num7, 0x08}, {Num8, 0x09}, {Num9, 0x0A}, {Num0, 0x0B},
	{Minus, 0x0C}, {Equal, 0x0D}, {BackSlash, 0x2B}, {Backspace, 0x0E},
	{Insert, 0xE052}, {Home, 0xE047}, {PageUp, 0xE049}, {NumLock, 0x45},
	{KpDivide, 0xE035}, {KpMultiply, 0x37}, {KpMinus, 0x4A}, {Tab, 0x0F},
	{KeyQ, 0x10}, {KeyW, 0x11}, {KeyE, 0x12}, {KeyR, 0x13}, {KeyT, 0x14}, {KeyY, 0x15},
	{KeyU, 0x16}, {KeyI, 0x17}, {KeyO, 0x18}, {KeyP, 0x19},
	{LeftBracket, 0x1A}, {RightBracket, 0x1B},
	{Delete, 0xE053}, {End, 0xE04F}, {PageDown, 0xE051},
	{Kp7, 0x47}, {Kp8, 0x48}, {Kp9, 0x49}, {KpPlus, 0x4E}, {CapsLock, 0x3A},
	{KeyA, 0x1E}, {KeyS, 0x1F}, {KeyD, 0x20}, {KeyF, 0x21}, {KeyG, 0x22}, {KeyH, 0x23},
	{KeyJ, 0x24}, {KeyK, 0x25}, {KeyL, 0x26}, {SemiColon, 0x27}, {Quote, 0x28},
	{Return, 0x1C}, {Kp4, 0x4B}, {Kp5, 0x4C}, {Kp6, 0x4D}, {ShiftLeft, 0x2A},
	{IntlBackslash, 0x56},
	{KeyZ, 0x2C}, {KeyX, 0x2D}, {KeyC, 0x2E}, {KeyV, 0x2F}, {KeyB, 0x30}, {KeyN, 0x31},
	{KeyM, 0x32}, {Comma, 0x33}, {Dot, 0x34}, {Slash, 0x35}, {ShiftRight, 0x36},
	{UpArrow, 0xE048}, {Kp1, 0x4F}, {Kp2, 0x50}, {Kp3, 0x51}, {KpReturn, 0xE01C},
	{ControlLeft, 0x1D}, {AltLeft, 0x38}, {Space, 0x39}, {AltRight, 0xE038},
	{ControlRight, 0xE01D}, {LeftArrow, 0xE04B}, {DownArrow, 0xE050},
	{RightArrow, 0xE04D}, {Kp0, 0x52}, {KpDecimal, 0x53}, {KpDelete, 0x53},
	{MetaLeft, 0xE05B}, {MetaRight, 0xE05C}, {VolumeMute, 0xE020},
	{VolumeDown, 0xE02E}, {VolumeUp, 0xE030}, {Apps, 0xE05D},
})

// HookScanCode builds the extended scan code reported by a Windows keyboard
// hook. RightShift (0x36) and NumLock (0x45) report the extended flag but
// keep their plain scan code.
func HookScanCode(scan uint32, extended bool) uint32 {
	if extended && scan != 0x36 && scan != 0x45 {
		return 0xE0<<8 | scan
	}
	return scan
}
