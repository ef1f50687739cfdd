//go:build windows

package win32

import (
	"errors"
	"fmt"

	"keyrelay/internal/keys"
	"keyrelay/internal/layout"
)

var errNoRebind = errors.New("win32: keycodes cannot be rebound")

// Source reads the foreground keyboard layout.
type Source struct {
	hkl   uintptr
	altGr bool
	calls int
}

// Load walks every virtual key at every level with ToUnicodeEx and types
// each dead key against every character stroke.
func (s *Source) Load() (*layout.Keymap, error) {
	hkl := foregroundLayout()
	if hkl == 0 {
		return nil, errors.New("win32: no foreground keyboard layout")
	}
	t := hklTranslator{hkl: hkl}
	t.flush()
	altGr := hasAltGr(t)
	km, calls := walkLayout(fmt.Sprintf("hkl-%#x", hkl), t, altGr)

	s.hkl, s.altGr, s.calls = hkl, altGr, calls
	return km, nil
}

// ActiveGroup is always 0: Windows switches layouts, not groups.
func (s *Source) ActiveGroup() (int, error) { return 0, nil }

// Modifiers reads the foreground thread's keyboard state, locks included.
func (s *Source) Modifiers() (keys.Modifiers, error) {
	st, err := foregroundKeyState()
	if err != nil {
		return keys.ModNone, err
	}
	return st.modifiers(s.altGr), nil
}

func (s *Source) Rebind(uint32, layout.Keysym) error { return errNoRebind }
