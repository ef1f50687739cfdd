package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhysicalKeyNames(t *testing.T) {
	for _, p := range AllPhysicalKeys() {
		back, err := ParsePhysicalKey(p.String())
		require.NoError(t, err)
		require.Equal(t, p, back)
	}
	assert.Equal(t, "F2", F2.String())
	assert.Equal(t, PhysicalKey(28), F2, "F2 keeps its wire position after F19")
	assert.False(t, PhysicalKey(500).Valid())

	_, err := ParsePhysicalKey("KeyÆ")
	assert.Error(t, err)
}

func TestPhysicalKeyModifiers(t *testing.T) {
	assert.True(t, ShiftRight.IsModifier())
	assert.True(t, MetaLeft.IsModifier())
	assert.False(t, CapsLock.IsModifier())
	assert.Equal(t, ModRightAlt, AltRight.Modifier())
	assert.Equal(t, ModNone, KeyA.Modifier())
}

func TestPhysicalLogical(t *testing.T) {
	assert.Equal(t, Char('a'), KeyA.Logical())
	assert.Equal(t, Char('\x7f'), Delete.Logical())
	assert.Equal(t, Char('\r'), Return.Logical())
	assert.Equal(t, Named(Left), LeftArrow.Logical())
	assert.Equal(t, FunctionKey(2), F2.Logical())
	assert.Equal(t, FunctionKey(13), F13.Logical())
	assert.Equal(t, Numpad(7), Kp7.Logical())
	assert.Equal(t, Physical(Function), Function.Logical())
}

func TestLogicalKeyPhysical(t *testing.T) {
	tests := []struct {
		key  LogicalKey
		want PhysicalKey
		ok   bool
	}{
		{Physical(KeyQ), KeyQ, true},
		{Named(Shift), ShiftLeft, true},
		{Named(RightControl), ControlRight, true},
		{Named(Up), UpArrow, true},
		{Named(PageDownKey), PageDown, true},
		{FunctionKey(1), F1, true},
		{FunctionKey(19), F19, true},
		{FunctionKey(24), 0, false},
		{Numpad(0), Kp0, true},
		{Char('a'), 0, false},
		{Named(BrowserBack), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			got, ok := tt.key.PhysicalKey()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNormalizeShift(t *testing.T) {
	e := WithKey(Char('c'), true, ModShift|ModCtrl).NormalizeShift()
	assert.Equal(t, Char('C'), e.Key)
	assert.Equal(t, ModCtrl, e.Modifiers)

	e = WithKey(Char('C'), true, ModShift).NormalizeShift()
	assert.Equal(t, Char('C'), e.Key)
	assert.Equal(t, ModNone, e.Modifiers)

	e = WithKey(Char('1'), true, ModShift).NormalizeShift()
	assert.Equal(t, ModShift, e.Modifiers)
}

func TestNormalizeCtrl(t *testing.T) {
	e := WithKey(Char('\x03'), true, ModLeftCtrl).NormalizeCtrl()
	assert.Equal(t, Char('c'), e.Key)

	e = WithKey(Char('\x03'), true, ModCtrl).NormalizeCtrl()
	assert.Equal(t, Char('\x03'), e.Key, "only side-qualified ctrl is decoded")
}

func TestCanonicalFoldsRawModifiers(t *testing.T) {
	raw := &RawKeyEvent{Key: KeyA, Press: true, Modifiers: ModLeftShift, RawCode: 38}
	e := KeyEvent{Key: Char('A'), Press: true, Modifiers: ModRightShift, Raw: raw}
	c := e.Canonical()
	assert.Equal(t, ModShift, c.Modifiers)
	assert.Equal(t, ModShift, c.Raw.Modifiers)
	assert.Equal(t, ModLeftShift, raw.Modifiers, "source event is untouched")
}

func TestTables(t *testing.T) {
	for _, table := range []*Table{Evdev, X11, ScanCodes} {
		for _, p := range AllPhysicalKeys() {
			code, ok := table.Code(p)
			if !ok {
				continue
			}
			back, ok := table.Key(code)
			require.True(t, ok)
			if back != p {
				c2, _ := table.Code(back)
				require.Equal(t, code, c2, "%s and %s share a code", p, back)
			}
		}
	}

	code, ok := X11.Code(KeyA)
	require.True(t, ok)
	assert.Equal(t, uint32(38), code)
	p, ok := X11.Key(91)
	require.True(t, ok)
	assert.Equal(t, KpDecimal, p)

	p, ok = ScanCodes.Key(0xE053)
	require.True(t, ok)
	assert.Equal(t, Delete, p)
}

func TestHookScanCode(t *testing.T) {
	assert.Equal(t, uint32(0xE038), HookScanCode(0x38, true))
	assert.Equal(t, uint32(0x38), HookScanCode(0x38, false))
	assert.Equal(t, uint32(0x36), HookScanCode(0x36, true))
	assert.Equal(t, uint32(0x45), HookScanCode(0x45, true))
}

func TestServerMode(t *testing.T) {
	for _, m := range []ServerMode{ModeMap, ModeTranslate, ModeAuto} {
		back, err := ParseServerMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, back)
	}
	_, err := ParseServerMode("mirror")
	assert.Error(t, err)
}

func TestGroupFromInt(t *testing.T) {
	assert.Equal(t, N1, GroupFromInt(-1))
	assert.Equal(t, N3, GroupFromInt(2))
	assert.Equal(t, N4, GroupFromInt(9))
	assert.Equal(t, "N2", N2.String())
}
