// Package win32 is the keyboard backend for Windows. It reads the
// foreground keyboard layout with ToUnicodeEx and injects with SendInput.
package win32

import (
	"unicode"
	"unicode/utf16"

	"keyrelay/internal/keys"
)

const (
	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002
	keyeventfUnicode     = 0x0004
	keyeventfScanCode    = 0x0008
)

const (
	vkShift    = 0x10
	vkControl  = 0x11
	vkMenu     = 0x12
	vkCapital  = 0x14
	vkSpace    = 0x20
	vkLWin     = 0x5b
	vkRWin     = 0x5c
	vkNumLock  = 0x90
	vkLShift   = 0xa0
	vkLControl = 0xa2
	vkRControl = 0xa3
	vkLMenu    = 0xa4
	vkRMenu    = 0xa5
	vkPacket   = 0xe7
)

// keyState is the 256-byte array GetKeyboardState fills and ToUnicodeEx
// reads. Bit 7 is down, bit 0 is toggled.
type keyState [256]byte

func (s *keyState) press(vks ...uint8) {
	for _, vk := range vks {
		s[vk] |= 0x80
	}
}

func (s *keyState) down(vk uint8) bool { return s[vk]&0x80 != 0 }

func (s *keyState) toggled(vk uint8) bool { return s[vk]&1 != 0 }

// modifiers reads the modifier set out of s. On layouts with AltGr, right
// Alt reports AltGr and the left control it synthesizes is not Ctrl.
func (s *keyState) modifiers(altGr bool) keys.Modifiers {
	var m keys.Modifiers
	if s.down(vkShift) {
		m |= keys.ModShift
	}
	switch {
	case altGr && s.down(vkRMenu):
		m |= keys.ModAltGr
		if s.down(vkRControl) {
			m |= keys.ModCtrl
		}
		if s.down(vkLMenu) {
			m |= keys.ModAlt
		}
	default:
		if s.down(vkControl) {
			m |= keys.ModCtrl
		}
		if s.down(vkMenu) {
			m |= keys.ModAlt
		}
	}
	if s.down(vkLWin) || s.down(vkRWin) {
		m |= keys.ModMeta
	}
	if s.toggled(vkCapital) {
		m |= keys.ModCaps
	}
	if s.toggled(vkNumLock) {
		m |= keys.ModNum
	}
	return m
}

// scanInput returns the wScan and dwFlags of a scan-code key event. Native
// codes carry 0xE0 in the high byte for extended keys.
func scanInput(code uint32, press bool) (scan uint16, flags uint32) {
	flags = keyeventfScanCode
	if code>>8 == 0xe0 {
		flags |= keyeventfExtendedKey
	}
	if !press {
		flags |= keyeventfKeyUp
	}
	return uint16(code & 0xff), flags
}

// unicodeInputs returns the UTF-16 units and flags typing r with
// KEYEVENTF_UNICODE. Characters outside the BMP take two events.
func unicodeInputs(r rune, press bool) ([]uint16, uint32) {
	flags := uint32(keyeventfUnicode)
	if !press {
		flags |= keyeventfKeyUp
	}
	if r1, r2 := utf16.EncodeRune(r); r1 != unicode.ReplacementChar {
		return []uint16{uint16(r1), uint16(r2)}, flags
	}
	return []uint16{uint16(r)}, flags
}
