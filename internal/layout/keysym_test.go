package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeysymToRune(t *testing.T) {
	tests := []struct {
		sym  Keysym
		want rune
	}{
		{0x61, 'a'},
		{0xe9, 'é'},
		{0x1000101, 'ā'},
		{0x1b3, 'ł'},
		{0x20ac, '€'},
		{XKReturn, '\r'},
		{XKBackSpace, '\b'},
		{XKDeadCircumflex, 0},
		{XKKP0 + 1, 0},
		{XKShiftL, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KeysymToRune(tt.sym), "%#x", uint32(tt.sym))
	}
}

func TestRuneToKeysym(t *testing.T) {
	for _, r := range []rune{'a', 'Z', 'é', 'ł', '€', 'Ω', '\r', '\t', '\x7f'} {
		assert.Equal(t, r, KeysymToRune(RuneToKeysym(r)), "%q", r)
	}
	assert.Equal(t, Keysym(0x10003a9), RuneToKeysym('Ω'))
	assert.Equal(t, XKReturn, RuneToKeysym('\n'))
}

func TestDeadGlyph(t *testing.T) {
	g, mark, ok := DeadGlyph(XKDeadDiaeresis)
	assert.True(t, ok)
	assert.Equal(t, '¨', g)
	assert.Equal(t, '\u0308', mark)
	assert.False(t, IsDead('^'))

	sym, ok := DeadKeysym('^')
	assert.True(t, ok)
	assert.Equal(t, XKDeadCircumflex, sym)
	sym, _ = DeadKeysym('"')
	assert.Equal(t, XKDeadDiaeresis, sym)
	_, ok = DeadKeysym('x')
	assert.False(t, ok)
}

func TestCompose(t *testing.T) {
	c, ok := compose('e', '\u0301')
	assert.True(t, ok)
	assert.Equal(t, 'é', c)
	_, ok = compose('q', '\u0308')
	assert.False(t, ok)
}
