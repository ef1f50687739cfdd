package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffPressesShift(t *testing.T) {
	got := Diff(ModNone, ModShift)
	require.Equal(t, []KeyEvent{WithPhys(ShiftLeft, true)}, got)
}

func TestDiffReleasesAndTapsLocks(t *testing.T) {
	got := Diff(ModCtrl|ModCaps, ModAltGr)
	assert.Equal(t, []KeyEvent{
		WithPhys(CapsLock, true),
		WithPhys(CapsLock, false),
		WithPhys(ControlLeft, false),
		WithPhys(AltRight, true),
	}, got)
}

func TestDiffFoldsPositionalBits(t *testing.T) {
	assert.Empty(t, Diff(ModLeftShift, ModShift))
	assert.Empty(t, Diff(ModRightCtrl|ModLeftAlt, ModCtrl|ModAlt))
	assert.Equal(t, []KeyEvent{WithPhys(MetaLeft, false)}, Diff(ModRightMeta, ModNone))
}

func TestDiffProperties(t *testing.T) {
	logical := []struct {
		bit  Modifiers
		key  PhysicalKey
		lock bool
	}{
		{ModShift, ShiftLeft, false},
		{ModCtrl, ControlLeft, false},
		{ModAlt, AltLeft, false},
		{ModMeta, MetaLeft, false},
		{ModAltGr, AltRight, false},
		{ModCaps, CapsLock, true},
		{ModNum, NumLock, true},
	}
	subsets := make([]Modifiers, 0, 1<<len(logical))
	for mask := 0; mask < 1<<len(logical); mask++ {
		var m Modifiers
		for i, l := range logical {
			if mask&(1<<i) != 0 {
				m |= l.bit
			}
		}
		subsets = append(subsets, m)
	}

	count := func(evs []KeyEvent, key PhysicalKey, press bool) int {
		n := 0
		for _, e := range evs {
			if e.Key == Physical(key) && e.Press == press {
				n++
			}
		}
		return n
	}

	for _, observed := range subsets {
		for _, target := range subsets {
			evs := Diff(observed, target)
			want := 0
			for _, l := range logical {
				has, needs := observed&l.bit != 0, target&l.bit != 0
				presses, releases := count(evs, l.key, true), count(evs, l.key, false)
				switch {
				case has == needs:
					require.Zero(t, presses+releases, "%s -> %s touched %s", observed, target, l.key)
				case l.lock:
					require.Equal(t, 1, presses, "%s -> %s", observed, target)
					require.Equal(t, 1, releases, "%s -> %s", observed, target)
					want += 2
				case needs:
					require.Equal(t, 1, presses, "%s -> %s", observed, target)
					require.Zero(t, releases)
					want++
				default:
					require.Equal(t, 1, releases, "%s -> %s", observed, target)
					require.Zero(t, presses)
					want++
				}
			}
			require.Len(t, evs, want)
		}
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, ModCtrl, ModLeftCtrl.Fold())
	assert.Equal(t, ModShift|ModCaps, (ModRightShift | ModCaps).Fold())
	assert.Equal(t, ModAlt|ModMeta, (ModLeftAlt | ModRightAlt | ModLeftMeta).Fold())
	assert.Equal(t, ModAltGr, ModAltGr.Fold())
}

func TestFoldIsIdempotent(t *testing.T) {
	for i := 0; i <= 0xFFFF; i++ {
		m := Modifiers(i)
		require.Equal(t, m.Fold(), m.Fold().Fold())
	}
}

func TestRemovePositional(t *testing.T) {
	assert.Equal(t, ModNone, ModLeftCtrl.RemovePositional())
	assert.Equal(t, ModShift|ModNum, (ModShift | ModRightShift | ModNum).RemovePositional())
}

func TestIsShortcut(t *testing.T) {
	assert.True(t, ModCtrl.IsShortcut())
	assert.True(t, ModRightAlt.IsShortcut())
	assert.True(t, ModMeta.IsShortcut())
	assert.False(t, (ModShift | ModCaps | ModAltGr).IsShortcut())
}

func TestModifiersString(t *testing.T) {
	assert.Equal(t, "NONE", ModNone.String())
	assert.Equal(t, "SHIFT | ALT", (ModShift | ModAlt).String())
	assert.Equal(t, "CTRL | ALT_GR", (ModAltGr | ModCtrl).String())
}

func TestParseModifiers(t *testing.T) {
	tests := []struct {
		in   string
		want Modifiers
	}{
		{"NONE", ModNone},
		{"", ModNone},
		{"SHIFT | ALT", ModShift | ModAlt},
		{"Ctrl+Shift", ModCtrl | ModShift},
		{"left_ctrl|altgr", ModLeftCtrl | ModAltGr},
		{"Win + CapsLock", ModMeta | ModCaps},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseModifiers(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseModifiers("SHIFT | HYPER")
	assert.Error(t, err)

	m := ModShift | ModRightCtrl | ModNum
	back, err := ParseModifiers(m.String())
	require.NoError(t, err)
	assert.Equal(t, m, back)
}
