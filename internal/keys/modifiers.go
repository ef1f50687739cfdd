package keys

import (
	"fmt"
	"strings"
)

// Modifiers is a bit-set of modifier state. The bit values are part of the
// wire format.
type Modifiers uint16

const (
	ModNone       Modifiers = 0
	ModShift      Modifiers = 1 << 1
	ModAlt        Modifiers = 1 << 2
	ModCtrl       Modifiers = 1 << 3
	ModMeta       Modifiers = 1 << 4
	ModLeftAlt    Modifiers = 1 << 5
	ModRightAlt   Modifiers = 1 << 6
	ModLeftCtrl   Modifiers = 1 << 7
	ModRightCtrl  Modifiers = 1 << 8
	ModLeftShift  Modifiers = 1 << 9
	ModRightShift Modifiers = 1 << 10
	ModCaps       Modifiers = 1 << 11
	ModNum        Modifiers = 1 << 12
	ModAltGr      Modifiers = 1 << 13
	ModLeftMeta   Modifiers = 1 << 14
	ModRightMeta  Modifiers = 1 << 15

	positionalMask = ModLeftAlt | ModRightAlt | ModLeftCtrl | ModRightCtrl |
		ModLeftShift | ModRightShift | ModLeftMeta | ModRightMeta
)

var modifierLabels = []struct {
	bit   Modifiers
	label string
}{
	{ModShift, "SHIFT"},
	{ModAlt, "ALT"},
	{ModCtrl, "CTRL"},
	{ModMeta, "META"},
	{ModLeftAlt, "LEFT_ALT"},
	{ModRightAlt, "RIGHT_ALT"},
	{ModLeftCtrl, "LEFT_CTRL"},
	{ModRightCtrl, "RIGHT_CTRL"},
	{ModLeftShift, "LEFT_SHIFT"},
	{ModRightShift, "RIGHT_SHIFT"},
	{ModCaps, "CAPS"},
	{ModNum, "NUM"},
	{ModAltGr, "ALT_GR"},
	{ModLeftMeta, "LEFT_META"},
	{ModRightMeta, "RIGHT_META"},
}

var modifierAliases = map[string]Modifiers{
	"NONE":     ModNone,
	"CONTROL":  ModCtrl,
	"OPTION":   ModAlt,
	"SUPER":    ModMeta,
	"WIN":      ModMeta,
	"CMD":      ModMeta,
	"ALTGR":    ModAltGr,
	"CAPSLOCK": ModCaps,
	"NUMLOCK":  ModNum,
}

// Has reports whether every bit of o is set in m.
func (m Modifiers) Has(o Modifiers) bool { return m&o == o && o != 0 }

// Any reports whether at least one bit of o is set in m.
func (m Modifiers) Any(o Modifiers) bool { return m&o != 0 }

// Fold converts side-qualified bits into their logical bit and clears the
// side-qualified ones. Fold is idempotent.
func (m Modifiers) Fold() Modifiers {
	pairs := [...]struct{ left, right, logical Modifiers }{
		{ModLeftAlt, ModRightAlt, ModAlt},
		{ModLeftCtrl, ModRightCtrl, ModCtrl},
		{ModLeftShift, ModRightShift, ModShift},
		{ModLeftMeta, ModRightMeta, ModMeta},
	}
	for _, p := range pairs {
		if m.Any(p.left | p.right) {
			m |= p.logical
		}
	}
	return m &^ positionalMask
}

// RemovePositional clears the side-qualified bits without folding them.
func (m Modifiers) RemovePositional() Modifiers { return m &^ positionalMask }

// IsShortcut reports whether m contains Ctrl, Alt or Meta on either side.
func (m Modifiers) IsShortcut() bool {
	return m.Any(ModCtrl | ModAlt | ModMeta | ModLeftCtrl | ModRightCtrl |
		ModLeftAlt | ModRightAlt | ModLeftMeta | ModRightMeta)
}

// Levels returns the bits that select a shift level within a layout group.
func (m Modifiers) Levels() Modifiers { return m & (ModShift | ModAltGr) }

func (m Modifiers) String() string {
	if m == ModNone {
		return "NONE"
	}
	var parts []string
	for _, l := range modifierLabels {
		if m&l.bit != 0 {
			parts = append(parts, l.label)
		}
	}
	return strings.Join(parts, " | ")
}

// ParseModifiers accepts "SHIFT | CTRL", "Ctrl+Shift" and "NONE".
func ParseModifiers(s string) (Modifiers, error) {
	var m Modifiers
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == '+' })
	for _, f := range fields {
		name := strings.ToUpper(strings.TrimSpace(f))
		if name == "" {
			continue
		}
		if bit, ok := modifierAliases[name]; ok {
			m |= bit
			continue
		}
		found := false
		for _, l := range modifierLabels {
			if l.label == name {
				m |= l.bit
				found = true
				break
			}
		}
		if !found {
			return ModNone, fmt.Errorf("keys: unknown modifier %q", f)
		}
	}
	return m, nil
}

var lockModifiers = [...]struct {
	bit Modifiers
	key PhysicalKey
}{
	{ModCaps, CapsLock},
	{ModNum, NumLock},
}

var transientModifiers = [...]struct {
	bit Modifiers
	key PhysicalKey
}{
	{ModShift, ShiftLeft},
	{ModCtrl, ControlLeft},
	{ModAlt, AltLeft},
	{ModMeta, MetaLeft},
	{ModAltGr, AltRight},
}

// Diff returns the physical key events that move the observed modifier
// state to target. Both sets are folded before comparison. Lock keys are
// tapped once when their state differs; transient modifiers are pressed or
// released on their left-hand key, AltGr on AltRight.
func Diff(observed, target Modifiers) []KeyEvent {
	observed, target = observed.Fold(), target.Fold()
	var out []KeyEvent
	for _, l := range lockModifiers {
		if observed&l.bit != target&l.bit {
			out = append(out, WithPhys(l.key, true), WithPhys(l.key, false))
		}
	}
	for _, t := range transientModifiers {
		has, want := observed&t.bit != 0, target&t.bit != 0
		switch {
		case has && !want:
			out = append(out, WithPhys(t.key, false))
		case !has && want:
			out = append(out, WithPhys(t.key, true))
		}
	}
	return out
}
