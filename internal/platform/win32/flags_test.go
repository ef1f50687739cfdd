package win32

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"keyrelay/internal/keys"
)

func TestScanInput(t *testing.T) {
	scan, flags := scanInput(0x1e, true)
	assert.Equal(t, uint16(0x1e), scan)
	assert.Equal(t, uint32(keyeventfScanCode), flags)

	scan, flags = scanInput(0xe053, false)
	assert.Equal(t, uint16(0x53), scan)
	assert.Equal(t, uint32(keyeventfScanCode|keyeventfExtendedKey|keyeventfKeyUp), flags)
}

func TestUnicodeInputs(t *testing.T) {
	units, flags := unicodeInputs('é', true)
	assert.Equal(t, []uint16{0xe9}, units)
	assert.Equal(t, uint32(keyeventfUnicode), flags)

	units, flags = unicodeInputs('\U0001F600', false)
	assert.Equal(t, []uint16{0xd83d, 0xde00}, units)
	assert.Equal(t, uint32(keyeventfUnicode|keyeventfKeyUp), flags)
}

func TestKeyStateModifiers(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*keyState)
		altGr bool
		want  keys.Modifiers
	}{
		{"none", func(*keyState) {}, false, keys.ModNone},
		{"shift", func(s *keyState) { s.press(vkShift, vkLShift) }, false, keys.ModShift},
		{"ctrl alt", func(s *keyState) { s.press(vkControl, vkLControl, vkMenu, vkRMenu) }, false, keys.ModCtrl | keys.ModAlt},
		{"altgr", func(s *keyState) { s.press(vkControl, vkLControl, vkMenu, vkRMenu) }, true, keys.ModAltGr},
		{"altgr with right ctrl", func(s *keyState) { s.press(vkControl, vkLControl, vkRControl, vkMenu, vkRMenu) }, true, keys.ModAltGr | keys.ModCtrl},
		{"win", func(s *keyState) { s.press(vkRWin) }, false, keys.ModMeta},
		{"locks toggled", func(s *keyState) { s[vkCapital], s[vkNumLock] = 1, 1 }, false, keys.ModCaps | keys.ModNum},
		{"caps held not toggled", func(s *keyState) { s.press(vkCapital) }, false, keys.ModNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st keyState
			tt.setup(&st)
			assert.Equal(t, tt.want, st.modifiers(tt.altGr))
		})
	}
}
