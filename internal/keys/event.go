package keys

import (
	"fmt"
	"unicode"
)

// RawKeyEvent describes the hardware event a KeyEvent was captured from.
type RawKeyEvent struct {
	Key       PhysicalKey
	Press     bool
	Modifiers Modifiers
	// RawCode is the native keycode (X11 keycode, Windows virtual key).
	RawCode uint32
	// ScanCode is the Windows scan code, extended keys carry 0xE0 in the high byte.
	ScanCode uint32
}

// KeyEvent is one logical press or release with its modifier context.
// Raw is set only for events captured from real hardware.
type KeyEvent struct {
	Key       LogicalKey
	Press     bool
	Modifiers Modifiers
	Raw       *RawKeyEvent
}

// WithPhys builds an unmodified event for a physical key.
func WithPhys(p PhysicalKey, press bool) KeyEvent {
	return KeyEvent{Key: Physical(p), Press: press}
}

// WithKey builds an event for any logical key.
func WithKey(k LogicalKey, press bool, mods Modifiers) KeyEvent {
	return KeyEvent{Key: k, Press: press, Modifiers: mods}
}

// Canonical folds the modifiers of the event and of its raw event.
func (e KeyEvent) Canonical() KeyEvent {
	e.Modifiers = e.Modifiers.Fold()
	if e.Raw != nil {
		raw := *e.Raw
		raw.Modifiers = raw.Modifiers.Fold()
		e.Raw = &raw
	}
	return e
}

// NormalizeShift turns a shifted ASCII letter into its uppercase form and
// drops SHIFT from the modifiers.
func (e KeyEvent) NormalizeShift() KeyEvent {
	if e.Modifiers&ModShift == 0 || e.Key.Kind != KindChar || e.Key.Rune > unicode.MaxASCII {
		return e
	}
	r := e.Key.Rune
	switch {
	case r >= 'A' && r <= 'Z':
	case r >= 'a' && r <= 'z':
		e.Key = Char(unicode.ToUpper(r))
	default:
		return e
	}
	e.Modifiers &^= ModShift
	return e
}

// NormalizeCtrl decodes an ASCII control character typed with a side
// qualified Ctrl back into its letter.
func (e KeyEvent) NormalizeCtrl() KeyEvent {
	if !e.Modifiers.Any(ModLeftCtrl|ModRightCtrl) || e.Key.Kind != KindChar || e.Key.Rune >= 0x20 {
		return e
	}
	e.Key = Char(unicode.ToLower(e.Key.Rune | 0x40))
	return e
}

func (e KeyEvent) String() string {
	dir := "up"
	if e.Press {
		dir = "down"
	}
	if e.Raw != nil {
		return fmt.Sprintf("%s %s [%s] raw=%s/%#x", e.Key, dir, e.Modifiers, e.Raw.Key, e.Raw.RawCode)
	}
	return fmt.Sprintf("%s %s [%s]", e.Key, dir, e.Modifiers)
}
