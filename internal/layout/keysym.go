package layout

import "fmt"

// Keysym is an X11 keysym. Windows layouts use the same space for the
// characters they produce so both platforms share one symbol table.
type Keysym uint32

// NoSymbol marks an empty slot in a keyboard mapping.
const NoSymbol Keysym = 0

const unicodeKeysymBase = 0x01000000

// Keysyms that do not map to a character but that the engine refers to.
const (
	XKBackSpace        Keysym = 0xff08
	XKTab              Keysym = 0xff09
	XKReturn           Keysym = 0xff0d
	XKEscape           Keysym = 0xff1b
	XKDelete           Keysym = 0xffff
	XKShiftL           Keysym = 0xffe1
	XKShiftR           Keysym = 0xffe2
	XKControlL         Keysym = 0xffe3
	XKControlR         Keysym = 0xffe4
	XKCapsLock         Keysym = 0xffe5
	XKAltL             Keysym = 0xffe9
	XKAltR             Keysym = 0xffea
	XKSuperL           Keysym = 0xffeb
	XKSuperR           Keysym = 0xffec
	XKNumLock          Keysym = 0xff7f
	XKISOLevel3Shift   Keysym = 0xfe03
	XKModeSwitch       Keysym = 0xff7e
	XKKPEnter          Keysym = 0xff8d
	XKKP0              Keysym = 0xffb0
	XKF1               Keysym = 0xffbe
	XKHome             Keysym = 0xff50
	XKLeft             Keysym = 0xff51
	XKUp               Keysym = 0xff52
	XKRight            Keysym = 0xff53
	XKDown             Keysym = 0xff54
	XKPrior            Keysym = 0xff55
	XKNext             Keysym = 0xff56
	XKEnd              Keysym = 0xff57
	XKInsert           Keysym = 0xff63
	XKDeadGrave        Keysym = 0xfe50
	XKDeadAcute        Keysym = 0xfe51
	XKDeadCircumflex   Keysym = 0xfe52
	XKDeadTilde        Keysym = 0xfe53
	XKDeadMacron       Keysym = 0xfe54
	XKDeadBreve        Keysym = 0xfe55
	XKDeadAbovedot     Keysym = 0xfe56
	XKDeadDiaeresis    Keysym = 0xfe57
	XKDeadAbovering    Keysym = 0xfe58
	XKDeadDoubleacute  Keysym = 0xfe59
	XKDeadCaron        Keysym = 0xfe5a
	XKDeadCedilla      Keysym = 0xfe5b
	XKDeadOgonek       Keysym = 0xfe5c
)

// deadKey describes a dead keysym: the spacing glyph it shows on its own and
// the combining mark it applies to the next character.
type deadKey struct {
	glyph rune
	mark  rune
}

var deadKeysyms = map[Keysym]deadKey{
	XKDeadGrave:       {'`', '\u0300'},
	XKDeadAcute:       {'´', '\u0301'},
	XKDeadCircumflex:  {'^', '\u0302'},
	XKDeadTilde:       {'~', '\u0303'},
	XKDeadMacron:      {'¯', '\u0304'},
	XKDeadBreve:       {'˘', '\u0306'},
	XKDeadAbovedot:    {'˙', '\u0307'},
	XKDeadDiaeresis:   {'¨', '\u0308'},
	XKDeadAbovering:   {'˚', '\u030a'},
	XKDeadDoubleacute: {'˝', '\u030b'},
	XKDeadCaron:       {'ˇ', '\u030c'},
	XKDeadCedilla:     {'¸', '\u0327'},
	XKDeadOgonek:      {'˛', '\u0328'},
}

// control keysyms that produce a character.
var functionRunes = map[Keysym]rune{
	XKBackSpace: '\b',
	XKTab:       '\t',
	0xff0a:      '\n',
	XKReturn:    '\r',
	XKEscape:    '\x1b',
	XKDelete:    '\x7f',
}

// Legacy (pre-Unicode) keysyms still emitted by common layouts.
var legacyRunes = map[Keysym]rune{
	0x1a1: 'Ą', 0x1a2: '˘', 0x1a3: 'Ł', 0x1a5: 'Ľ', 0x1a6: 'Ś', 0x1a9: 'Š', 0x1aa: 'Ş',
	0x1ab: 'Ť', 0x1ac: 'Ź', 0x1ae: 'Ž', 0x1af: 'Ż', 0x1b1: 'ą', 0x1b2: '˛', 0x1b3: 'ł',
	0x1b5: 'ľ', 0x1b6: 'ś', 0x1b7: 'ˇ', 0x1b9: 'š', 0x1ba: 'ş', 0x1bb: 'ť', 0x1bc: 'ź',
	0x1bd: '˝', 0x1be: 'ž', 0x1bf: 'ż', 0x1c0: 'Ŕ', 0x1c3: 'Ă', 0x1c5: 'Ĺ', 0x1c6: 'Ć',
	0x1c8: 'Č', 0x1ca: 'Ę', 0x1cc: 'Ě', 0x1cf: 'Ď', 0x1d0: 'Đ', 0x1d1: 'Ń', 0x1d2: 'Ň',
	0x1d5: 'Ő', 0x1d8: 'Ř', 0x1d9: 'Ů', 0x1db: 'Ű', 0x1de: 'Ţ', 0x1e0: 'ŕ', 0x1e3: 'ă',
	0x1e5: 'ĺ', 0x1e6: 'ć', 0x1e8: 'č', 0x1ea: 'ę', 0x1ec: 'ě', 0x1ef: 'ď', 0x1f0: 'đ',
	0x1f1: 'ń', 0x1f2: 'ň', 0x1f5: 'ő', 0x1f8: 'ř', 0x1f9: 'ů', 0x1fb: 'ű', 0x1fe: 'ţ',
	0x1ff: '˙', 0x13bc: 'Œ', 0x13bd: 'œ', 0x13be: 'Ÿ', 0x20ac: '€',
}

var legacyKeysyms = func() map[rune]Keysym {
	m := make(map[rune]Keysym, len(legacyRunes))
	for k, r := range legacyRunes {
		m[r] = k
	}
	return m
}()

// KeysymToRune returns the character a keysym types, or 0. Dead keysyms and
// keypad keysyms yield 0.
func KeysymToRune(sym Keysym) rune {
	switch {
	case sym >= 0x20 && sym <= 0x7e, sym >= 0xa0 && sym <= 0xff:
		return rune(sym)
	case sym&0xff000000 == unicodeKeysymBase:
		return rune(sym &^ unicodeKeysymBase)
	}
	if r, ok := functionRunes[sym]; ok {
		return r
	}
	return legacyRunes[sym]
}

// RuneToKeysym returns the keysym that types r.
func RuneToKeysym(r rune) Keysym {
	switch {
	case r >= 0x20 && r <= 0x7e, r >= 0xa0 && r <= 0xff:
		return Keysym(r)
	case r == '\n':
		return XKReturn
	}
	for sym, fr := range functionRunes {
		if fr == r && sym != 0xff0a {
			return sym
		}
	}
	if sym, ok := legacyKeysyms[r]; ok {
		return sym
	}
	return Keysym(r) | unicodeKeysymBase
}

// IsDead reports whether sym is a dead keysym.
func IsDead(sym Keysym) bool {
	_, ok := deadKeysyms[sym]
	return ok
}

// DeadGlyph returns the spacing glyph and combining mark of a dead keysym.
func DeadGlyph(sym Keysym) (glyph, mark rune, ok bool) {
	d, ok := deadKeysyms[sym]
	return d.glyph, d.mark, ok
}

// DeadKeysym returns the dead keysym whose spacing glyph is g. Layouts that
// report ASCII stand-ins for the acute and diaeresis glyphs are accepted.
func DeadKeysym(g rune) (Keysym, bool) {
	switch g {
	case '\'':
		g = '´'
	case '"':
		g = '¨'
	}
	for sym, d := range deadKeysyms {
		if d.glyph == g {
			return sym, true
		}
	}
	return NoSymbol, false
}

func (k Keysym) String() string {
	if r := KeysymToRune(k); r > 0x20 {
		return fmt.Sprintf("%#x(%q)", uint32(k), r)
	}
	if g, _, ok := DeadGlyph(k); ok {
		return fmt.Sprintf("%#x(dead %q)", uint32(k), g)
	}
	return fmt.Sprintf("%#x", uint32(k))
}
