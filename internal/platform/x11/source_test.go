package x11

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"keyrelay/internal/keys"
)

func TestModifiersFromMask(t *testing.T) {
	tests := []struct {
		mask uint16
		want keys.Modifiers
	}{
		{0, keys.ModNone},
		{1, keys.ModShift},
		{1 | 4, keys.ModShift | keys.ModCtrl},
		{2 | 16, keys.ModCaps | keys.ModNum},
		{8 | 64 | 128, keys.ModAlt | keys.ModMeta | keys.ModAltGr},
		{1<<13 | 1, keys.ModShift},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, modifiersFromMask(tt.mask), "mask %#x", tt.mask)
	}
}

func TestGroupFromMask(t *testing.T) {
	assert.Equal(t, 0, groupFromMask(0x00ff))
	assert.Equal(t, 1, groupFromMask(1<<13))
	assert.Equal(t, 3, groupFromMask(3<<13|1))
}

func TestRulesLayout(t *testing.T) {
	assert.Equal(t, "fr,us", rulesLayout([]byte("evdev\x00pc105\x00fr,us\x00,\x00grp:alt_shift_toggle\x00")))
	assert.Equal(t, "x11", rulesLayout([]byte("evdev\x00pc105\x00")))
	assert.Equal(t, "x11", rulesLayout(nil))
}
