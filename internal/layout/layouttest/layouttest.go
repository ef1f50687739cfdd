// Package layouttest provides in-memory keyboard layouts for tests.
package layouttest

import (
	"errors"
	"sync"

	"keyrelay/internal/keys"
	"keyrelay/internal/layout"
)

// Key lists the keysyms of one physical key, level 1 first.
type Key struct {
	Phys   keys.PhysicalKey
	Levels []layout.Keysym
}

func k(p keys.PhysicalKey, levels ...layout.Keysym) Key { return Key{Phys: p, Levels: levels} }

func ch(s string) []layout.Keysym {
	out := make([]layout.Keysym, 0, len(s))
	for _, r := range s {
		out = append(out, layout.RuneToKeysym(r))
	}
	return out
}

func letters(ps []keys.PhysicalKey, lower string) []Key {
	out := make([]Key, 0, len(ps))
	for i, r := range []rune(lower) {
		up := r - 'a' + 'A'
		out = append(out, k(ps[i], layout.RuneToKeysym(r), layout.RuneToKeysym(up)))
	}
	return out
}

// common keys shared by every fixture.
var common = []Key{
	k(keys.Escape, layout.XKEscape),
	k(keys.Backspace, layout.XKBackSpace),
	k(keys.Tab, layout.XKTab),
	k(keys.Return, layout.XKReturn),
	k(keys.ControlLeft, layout.XKControlL),
	k(keys.ControlRight, layout.XKControlR),
	k(keys.ShiftLeft, layout.XKShiftL),
	k(keys.ShiftRight, layout.XKShiftR),
	k(keys.AltLeft, layout.XKAltL),
	k(keys.MetaLeft, layout.XKSuperL),
	k(keys.MetaRight, layout.XKSuperR),
	k(keys.CapsLock, layout.XKCapsLock),
	k(keys.NumLock, layout.XKNumLock),
	k(keys.Space, ' '),
	k(keys.Delete, layout.XKDelete),
	k(keys.Home, layout.XKHome),
	k(keys.End, layout.XKEnd),
	k(keys.PageUp, layout.XKPrior),
	k(keys.PageDown, layout.XKNext),
	k(keys.Insert, layout.XKInsert),
	k(keys.LeftArrow, layout.XKLeft),
	k(keys.RightArrow, layout.XKRight),
	k(keys.UpArrow, layout.XKUp),
	k(keys.DownArrow, layout.XKDown),
	k(keys.F1, layout.XKF1),
	k(keys.F2, layout.XKF1+1),
	k(keys.KpReturn, layout.XKKPEnter),
	k(keys.Kp0, layout.XKKP0),
	k(keys.Kp1, layout.XKKP0+1),
	k(keys.Kp2, layout.XKKP0+2),
}

// US is an ANSI US QWERTY layout.
func US() []Key {
	out := append([]Key(nil), common...)
	out = append(out, k(keys.AltRight, layout.XKAltR))
	digits := []keys.PhysicalKey{keys.Num1, keys.Num2, keys.Num3, keys.Num4, keys.Num5,
		keys.Num6, keys.Num7, keys.Num8, keys.Num9, keys.Num0}
	shifted := "!@#$%^&*()"
	for i, p := range digits {
		out = append(out, k(p, ch(string("1234567890"[i])+string(shifted[i]))...))
	}
	out = append(out,
		k(keys.BackQuote, ch("`~")...),
		k(keys.Minus, ch("-_")...),
		k(keys.Equal, ch("=+")...),
		k(keys.LeftBracket, ch("[{")...),
		k(keys.RightBracket, ch("]}")...),
		k(keys.BackSlash, ch("\\|")...),
		k(keys.SemiColon, ch(";:")...),
		k(keys.Quote, ch("'\"")...),
		k(keys.Comma, ch(",<")...),
		k(keys.Dot, ch(".>")...),
		k(keys.Slash, ch("/?")...),
	)
	out = append(out, letters([]keys.PhysicalKey{keys.KeyQ, keys.KeyW, keys.KeyE, keys.KeyR,
		keys.KeyT, keys.KeyY, keys.KeyU, keys.KeyI, keys.KeyO, keys.KeyP}, "qwertyuiop")...)
	out = append(out, letters([]keys.PhysicalKey{keys.KeyA, keys.KeyS, keys.KeyD, keys.KeyF,
		keys.KeyG, keys.KeyH, keys.KeyJ, keys.KeyK, keys.KeyL}, "asdfghjkl")...)
	out = append(out, letters([]keys.PhysicalKey{keys.KeyZ, keys.KeyX, keys.KeyC, keys.KeyV,
		keys.KeyB, keys.KeyN, keys.KeyM}, "zxcvbnm")...)
	return out
}

// French is the French AZERTY layout with its dead circumflex and diaeresis
// on the key right of P.
func French() []Key {
	out := append([]Key(nil), common...)
	out = append(out, k(keys.AltRight, layout.XKISOLevel3Shift))
	out = append(out,
		k(keys.BackQuote, ch("²")...),
		k(keys.Num1, ch("&1")...),
		k(keys.Num2, ch("é2~")...),
		k(keys.Num3, ch("\"3#")...),
		k(keys.Num4, ch("'4{")...),
		k(keys.Num5, ch("(5[")...),
		k(keys.Num6, ch("-6|")...),
		k(keys.Num7, ch("è7`")...),
		k(keys.Num8, ch("_8\\")...),
		k(keys.Num9, ch("ç9^")...),
		k(keys.Num0, ch("à0@")...),
		k(keys.Minus, ch(")°]")...),
		k(keys.Equal, ch("=+}")...),
		k(keys.LeftBracket, layout.XKDeadCircumflex, layout.XKDeadDiaeresis),
		k(keys.RightBracket, ch("$£¤")...),
		k(keys.Quote, ch("ù%")...),
		k(keys.BackSlash, ch("*µ")...),
		k(keys.KeyM, ch(",?")...),
		k(keys.Comma, ch(";.")...),
		k(keys.Dot, ch(":/")...),
		k(keys.Slash, ch("!§")...),
		k(keys.IntlBackslash, ch("<>")...),
		k(keys.KeyE, layout.RuneToKeysym('e'), layout.RuneToKeysym('E'), layout.RuneToKeysym('€')),
	)
	out = append(out, letters([]keys.PhysicalKey{keys.KeyQ, keys.KeyW, keys.KeyR,
		keys.KeyT, keys.KeyY, keys.KeyU, keys.KeyI, keys.KeyO, keys.KeyP}, "azrtyuiop")...)
	out = append(out, letters([]keys.PhysicalKey{keys.KeyA, keys.KeyS, keys.KeyD, keys.KeyF,
		keys.KeyG, keys.KeyH, keys.KeyJ, keys.KeyK, keys.KeyL, keys.SemiColon}, "qsdfghjklm")...)
	out = append(out, letters([]keys.PhysicalKey{keys.KeyZ, keys.KeyX, keys.KeyC, keys.KeyV,
		keys.KeyB, keys.KeyN}, "wxcvbn")...)
	return out
}

const (
	// MinCode and MaxCode bound the fixture keycodes, as on an Xorg server.
	MinCode = 8
	MaxCode = 255
	// PerKeycode is the core mapping width used by CoreMapping.
	PerKeycode = 8
)

// CoreMapping lays groups out as an X11 core keyboard mapping reply. Keys
// present in only the first group get symbols only in group 1 columns.
func CoreMapping(groups ...[]Key) []layout.Keysym {
	syms := make([]layout.Keysym, (MaxCode-MinCode+1)*PerKeycode)
	columns := [2][4]int{{0, 1, 4, 5}, {2, 3, 6, 7}}
	for g, grp := range groups {
		if g > 1 {
			break
		}
		for _, key := range grp {
			code, ok := keys.X11.Code(key.Phys)
			if !ok {
				continue
			}
			row := int(code-MinCode) * PerKeycode
			for level, sym := range key.Levels {
				if level < 4 {
					syms[row+columns[g][level]] = sym
				}
			}
		}
	}
	// Keys identical in every group are stored once, in group 1.
	if len(groups) > 1 {
		for row := 0; row < len(syms); row += PerKeycode {
			if syms[row] == syms[row+2] && syms[row+1] == syms[row+3] &&
				syms[row+4] == syms[row+6] && syms[row+5] == syms[row+7] {
				syms[row+2], syms[row+3], syms[row+6], syms[row+7] = 0, 0, 0, 0
			}
		}
	}
	return syms
}

// Keymap builds a keymap from one or two groups.
func Keymap(name string, groups ...[]Key) *layout.Keymap {
	return layout.BuildCoreKeymap(name, MinCode, PerKeycode, CoreMapping(groups...), keys.X11)
}

// Rebind is one recorded keycode rebind.
type Rebind struct {
	Code   uint32
	Keysym layout.Keysym
}

// Source is a layout.Source backed by fixture groups.
type Source struct {
	mu       sync.Mutex
	name     string
	groups   [][]Key
	group    int
	mods     keys.Modifiers
	loadErr  error
	rebinds  []Rebind
	loads    int
	noRebind bool
}

// NewSource returns a source serving the given groups.
func NewSource(name string, groups ...[]Key) *Source {
	return &Source{name: name, groups: groups}
}

func (s *Source) Load() (*layout.Keymap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	km := Keymap(s.name, s.groups...)
	for _, rb := range s.rebinds {
		km.Bind(rb.Code, rb.Keysym)
	}
	return km, nil
}

func (s *Source) ActiveGroup() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.group, nil
}

func (s *Source) Modifiers() (keys.Modifiers, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mods, nil
}

func (s *Source) Rebind(code uint32, sym layout.Keysym) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.noRebind {
		return errors.New("rebind refused")
	}
	s.rebinds = append(s.rebinds, Rebind{Code: code, Keysym: sym})
	return nil
}

// SetGroup selects the active group.
func (s *Source) SetGroup(g int) {
	s.mu.Lock()
	s.group = g
	s.mu.Unlock()
}

// SetModifiers sets the live modifier state.
func (s *Source) SetModifiers(m keys.Modifiers) {
	s.mu.Lock()
	s.mods = m
	s.mu.Unlock()
}

// SetGroups replaces the served layout.
func (s *Source) SetGroups(name string, groups ...[]Key) {
	s.mu.Lock()
	s.name, s.groups = name, groups
	s.mu.Unlock()
}

// FailLoad makes later loads return err; nil restores them.
func (s *Source) FailLoad(err error) {
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
}

// RefuseRebind makes Rebind fail.
func (s *Source) RefuseRebind() {
	s.mu.Lock()
	s.noRebind = true
	s.mu.Unlock()
}

// Rebinds returns the recorded rebinds.
func (s *Source) Rebinds() []Rebind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Rebind(nil), s.rebinds...)
}

// Loads returns how many times Load ran.
func (s *Source) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// Code returns the X11 keycode of p.
func Code(p keys.PhysicalKey) uint32 {
	c, _ := keys.X11.Code(p)
	return c
}
