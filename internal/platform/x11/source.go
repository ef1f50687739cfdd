// Package x11 is the keyboard backend for X11 displays. It reads the core
// keyboard mapping, injects through the XTEST extension and rebinds unused
// keycodes with ChangeKeyboardMapping.
package x11

import (
	"bytes"
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"keyrelay/internal/keys"
	"keyrelay/internal/layout"
)

// Source implements layout.Source over an X connection.
type Source struct {
	conn     *xgb.Conn
	root     xproto.Window
	min, max xproto.Keycode
}

func newSource(conn *xgb.Conn) *Source {
	setup := xproto.Setup(conn)
	return &Source{
		conn: conn,
		root: setup.DefaultScreen(conn).Root,
		min:  setup.MinKeycode,
		max:  setup.MaxKeycode,
	}
}

func (s *Source) Load() (*layout.Keymap, error) {
	reply, err := xproto.GetKeyboardMapping(s.conn, s.min, byte(s.max-s.min+1)).Reply()
	if err != nil {
		return nil, fmt.Errorf("x11: get keyboard mapping: %w", err)
	}
	syms := make([]layout.Keysym, len(reply.Keysyms))
	for i, k := range reply.Keysyms {
		syms[i] = layout.Keysym(k)
	}
	return layout.BuildCoreKeymap(s.layoutName(), uint32(s.min), int(reply.KeysymsPerKeycode), syms, keys.X11), nil
}

// layoutName reads the layout list from the _XKB_RULES_NAMES root property,
// such as "fr,us". It returns "x11" when the property is missing.
func (s *Source) layoutName() string {
	atom, err := xproto.InternAtom(s.conn, true, uint16(len("_XKB_RULES_NAMES")), "_XKB_RULES_NAMES").Reply()
	if err != nil || atom.Atom == xproto.AtomNone {
		return "x11"
	}
	prop, err := xproto.GetProperty(s.conn, false, s.root, atom.Atom, xproto.AtomString, 0, 1024).Reply()
	if err != nil {
		return "x11"
	}
	return rulesLayout(prop.Value)
}

// rulesLayout extracts the layout field of a NUL separated
// rules/model/layout/variant/options value.
func rulesLayout(v []byte) string {
	fields := bytes.Split(v, []byte{0})
	if len(fields) < 3 || len(fields[2]) == 0 {
		return "x11"
	}
	return string(fields[2])
}

func (s *Source) pointerMask() (uint16, error) {
	reply, err := xproto.QueryPointer(s.conn, s.root).Reply()
	if err != nil {
		return 0, fmt.Errorf("x11: query pointer: %w", err)
	}
	return reply.Mask, nil
}

func (s *Source) ActiveGroup() (int, error) {
	mask, err := s.pointerMask()
	if err != nil {
		return 0, err
	}
	return groupFromMask(mask), nil
}

func (s *Source) Modifiers() (keys.Modifiers, error) {
	mask, err := s.pointerMask()
	if err != nil {
		return keys.ModNone, err
	}
	return modifiersFromMask(mask), nil
}

// Rebind puts sym on both levels of code.
func (s *Source) Rebind(code uint32, sym layout.Keysym) error {
	per := 2
	if reply, err := xproto.GetKeyboardMapping(s.conn, xproto.Keycode(code), 1).Reply(); err == nil && reply.KeysymsPerKeycode > 0 {
		per = int(reply.KeysymsPerKeycode)
	}
	row := make([]xproto.Keysym, per)
	row[0] = xproto.Keysym(sym)
	if per > 1 {
		row[1] = xproto.Keysym(sym)
	}
	err := xproto.ChangeKeyboardMappingChecked(s.conn, 1, xproto.Keycode(code), byte(per), row).Check()
	if err != nil {
		return fmt.Errorf("x11: change keyboard mapping: %w", err)
	}
	return nil
}

// groupFromMask returns the XKB group stored in bits 13 and 14 of a core
// state mask.
func groupFromMask(mask uint16) int { return int(mask>>13) & 3 }

// modifiersFromMask maps the core modifier bits with the usual Xorg
// assignment: Mod1 Alt, Mod2 NumLock, Mod4 Super, Mod5 ISO_Level3_Shift.
func modifiersFromMask(mask uint16) keys.Modifiers {
	table := [...]struct {
		bit uint16
		mod keys.Modifiers
	}{
		{xproto.ModMaskShift, keys.ModShift},
		{xproto.ModMaskLock, keys.ModCaps},
		{xproto.ModMaskControl, keys.ModCtrl},
		{xproto.ModMask1, keys.ModAlt},
		{xproto.ModMask2, keys.ModNum},
		{xproto.ModMask4, keys.ModMeta},
		{xproto.ModMask5, keys.ModAltGr},
	}
	var m keys.Modifiers
	for _, t := range table {
		if mask&t.bit != 0 {
			m |= t.mod
		}
	}
	return m
}
