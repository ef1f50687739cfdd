package keys

import "fmt"

// KeyKind tags the variant held by a LogicalKey. Values are wire discriminants.
type KeyKind uint8

const (
	KindChar KeyKind = iota
	KindComposed
	KindRawCode
	KindKeySym
	KindPhysical
	KindNamed
	KindFunction
	KindNumpad
)

// LogicalKey is what a key means, as opposed to where it sits.
//
// Only the field matching Kind is meaningful. The zero value of the other
// fields keeps LogicalKey comparable with ==.
type LogicalKey struct {
	Kind    KeyKind
	Rune    rune
	Text    string
	Code    uint32
	Phys    PhysicalKey
	Name    NamedKey
	Ordinal uint8
}

func Char(r rune) LogicalKey { return LogicalKey{Kind: KindChar, Rune: r} }
func Composed(s string) LogicalKey { return LogicalKey{Kind: KindComposed, Text: s} }
func RawCode(c uint32) LogicalKey { return LogicalKey{Kind: KindRawCode, Code: c} }
func KeySym(sym uint32) LogicalKey { return LogicalKey{Kind: KindKeySym, Code: sym} }
func Physical(p PhysicalKey) LogicalKey { return LogicalKey{Kind: KindPhysical, Phys: p} }
func Named(n NamedKey) LogicalKey { return LogicalKey{Kind: KindNamed, Name: n} }
func FunctionKey(n uint8) LogicalKey { return LogicalKey{Kind: KindFunction, Ordinal: n} }
func Numpad(n uint8) LogicalKey { return LogicalKey{Kind: KindNumpad, Ordinal: n} }

// IsChar reports whether k carries text (a character or a composed string).
func (k LogicalKey) IsChar() bool { return k.Kind == KindChar || k.Kind == KindComposed }

// PhysicalKey returns the position a layout-independent key occupies.
func (k LogicalKey) PhysicalKey() (PhysicalKey, bool) {
	switch k.Kind {
	case KindPhysical:
		return k.Phys, k.Phys.Valid()
	case KindNamed:
		return k.Name.Physical()
	case KindFunction:
		switch {
		case k.Ordinal == 1:
			return F1, true
		case k.Ordinal == 2:
			return F2, true
		case k.Ordinal >= 3 && k.Ordinal <= 19:
			return F3 + PhysicalKey(k.Ordinal-3), true
		case k.Ordinal == 20:
			return F20, true
		}
	case KindNumpad:
		if k.Ordinal <= 9 {
			return Kp0 + PhysicalKey(k.Ordinal), true
		}
	}
	return 0, false
}

func (k LogicalKey) String() string {
	switch k.Kind {
	case KindChar:
		return fmt.Sprintf("Char(%q)", k.Rune)
	case KindComposed:
		return fmt.Sprintf("Composed(%q)", k.Text)
	case KindRawCode:
		return fmt.Sprintf("RawCode(%#x)", k.Code)
	case KindKeySym:
		return fmt.Sprintf("KeySym(%#x)", k.Code)
	case KindPhysical:
		return fmt.Sprintf("Physical(%s)", k.Phys)
	case KindNamed:
		return k.Name.String()
	case KindFunction:
		return fmt.Sprintf("Function(%d)", k.Ordinal)
	case KindNumpad:
		return fmt.Sprintf("Numpad(%d)", k.Ordinal)
	}
	return fmt.Sprintf("LogicalKey(kind=%d)", k.Kind)
}

// NamedKey enumerates the non-printable logical keys. Values are wire discriminants.
type NamedKey uint8

const (
	Hyper NamedKey = iota
	Super
	Meta
	Cancel
	Clear
	Shift
	LeftShift
	RightShift
	Control
	LeftControl
	RightControl
	Alt
	LeftAlt
	RightAlt
	PauseKey
	CapsLockKey
	VoidSymbol
	PageUpKey
	PageDownKey
	EndKey
	HomeKey
	Left
	Right
	Up
	Down
	Select
	Print
	Execute
	PrintScreenKey
	InsertKey
	HelpKey
	LeftWindows
	RightWindows
	Applications
	Sleep
	Multiply
	Add
	Separator
	Subtract
	Decimal
	Divide
	NumLockKey
	ScrollLockKey
	Copy
	Cut
	Paste
	BrowserBack
	BrowserForward
	BrowserRefresh
	BrowserStop
	BrowserSearch
	BrowserFavorites
	BrowserHome
	VolumeMuteKey
	VolumeDownKey
	VolumeUpKey
	MediaNextTrack
	MediaPrevTrack
	MediaStop
	MediaPlayPause
	ApplicationLeftArrow
	ApplicationRightArrow
	ApplicationUpArrow
	ApplicationDownArrow
	AppsKey

	namedKeyCount
)

var namedNames = [namedKeyCount]string{
	"Hyper", "Super", "Meta", "Cancel", "Clear", "Shift", "LeftShift", "RightShift", "Control",
	"LeftControl", "RightControl", "Alt", "LeftAlt", "RightAlt", "Pause", "CapsLock",
	"VoidSymbol", "PageUp", "PageDown", "End", "Home", "LeftArrow", "RightArrow", "UpArrow",
	"DownArrow", "Select", "Print", "Execute", "PrintScreen", "Insert", "Help", "LeftWindows",
	"RightWindows", "Applications", "Sleep", "Multiply", "Add", "Separator", "Subtract",
	"Decimal", "Divide", "NumLock", "ScrollLock", "Copy", "Cut", "Paste", "BrowserBack",
	"BrowserForward", "BrowserRefresh", "BrowserStop", "BrowserSearch", "BrowserFavorites",
	"BrowserHome", "VolumeMute", "VolumeDown", "VolumeUp", "MediaNextTrack", "MediaPrevTrack",
	"MediaStop", "MediaPlayPause", "ApplicationLeftArrow", "ApplicationRightArrow",
	"ApplicationUpArrow", "ApplicationDownArrow", "Apps",
}

// Valid reports whether n is a defined named key.
func (n NamedKey) Valid() bool { return n < namedKeyCount }

func (n NamedKey) String() string {
	if !n.Valid() {
		return fmt.Sprintf("NamedKey(%d)", uint8(n))
	}
	return namedNames[n]
}

// Physical returns the physical position of n, when it has one.
func (n NamedKey) Physical() (PhysicalKey, bool) {
	switch n {
	case Shift, LeftShift:
		return ShiftLeft, true
	case RightShift:
		return ShiftRight, true
	case Control, LeftControl:
		return ControlLeft, true
	case RightControl:
		return ControlRight, true
	case Alt, LeftAlt:
		return AltLeft, true
	case RightAlt:
		return AltRight, true
	case Meta, Super, LeftWindows:
		return MetaLeft, true
	case RightWindows:
		return MetaRight, true
	case ApplicationLeftArrow:
		return LeftArrow, true
	case ApplicationRightArrow:
		return RightArrow, true
	case ApplicationUpArrow:
		return UpArrow, true
	case ApplicationDownArrow:
		return DownArrow, true
	case Applications:
		return Apps, true
	}
	for p, named := range physicalNamed {
		if named == n {
			return p, true
		}
	}
	return 0, false
}
