package hotkey

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyrelay/internal/keys"
)

func captured(p keys.PhysicalKey, press bool, mods keys.Modifiers) keys.KeyEvent {
	return keys.KeyEvent{
		Key:       p.Logical(),
		Press:     press,
		Modifiers: mods.Fold(),
		Raw:       &keys.RawKeyEvent{Key: p, Press: press, Modifiers: mods},
	}
}

func TestParse(t *testing.T) {
	c, err := Parse("ctrl + alt + Escape")
	require.NoError(t, err)
	assert.Equal(t, keys.Escape, c.Key)
	assert.Equal(t, keys.ModCtrl|keys.ModAlt, c.Mods)

	c, err = Parse("F5")
	require.NoError(t, err)
	assert.Equal(t, Combo{Key: keys.F5}, c)

	_, err = Parse("")
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = Parse("Ctrl+")
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = Parse("Ctrl+Banana")
	assert.Error(t, err)
}

func TestStringParsesBack(t *testing.T) {
	c, err := Parse("Shift+Ctrl+KeyK")
	require.NoError(t, err)
	again, err := Parse(c.String())
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestMatchesExactModifiers(t *testing.T) {
	c, err := Parse("Ctrl+Alt+End")
	require.NoError(t, err)

	assert.True(t, c.Matches(captured(keys.End, true, keys.ModLeftCtrl|keys.ModRightAlt)))
	assert.True(t, c.Matches(captured(keys.End, true, keys.ModCtrl|keys.ModAlt|keys.ModCaps)), "locks are ignored")
	assert.False(t, c.Matches(captured(keys.End, false, keys.ModCtrl|keys.ModAlt)), "release")
	assert.False(t, c.Matches(captured(keys.End, true, keys.ModCtrl)))
	assert.False(t, c.Matches(captured(keys.End, true, keys.ModCtrl|keys.ModAlt|keys.ModShift)))
	assert.False(t, c.Matches(captured(keys.Home, true, keys.ModCtrl|keys.ModAlt)))
}

func TestMatchesShiftedLetter(t *testing.T) {
	c, err := Parse("Shift+KeyA")
	require.NoError(t, err)
	// Capture drops Shift from the logical event of a letter; the raw
	// event still carries it.
	evt := captured(keys.KeyA, true, keys.ModLeftShift)
	evt.Key = keys.Char('A')
	evt.Modifiers = keys.ModNone
	assert.True(t, c.Matches(evt))
}

func TestMatchesWithoutRaw(t *testing.T) {
	c, err := Parse("Ctrl+KeyQ")
	require.NoError(t, err)
	assert.True(t, c.Matches(keys.WithKey(keys.Physical(keys.KeyQ), true, keys.ModCtrl)))
	assert.False(t, c.Matches(keys.WithKey(keys.Char('q'), true, keys.ModCtrl)), "no physical key")
}

func TestManagerObserve(t *testing.T) {
	var stop, release atomic.Int32
	m := NewManager(nil)
	_, err := m.Register("Ctrl+Alt+Escape", func() { stop.Add(1) })
	require.NoError(t, err)
	id, err := m.Register("Ctrl+Alt+End", func() { release.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	id, err = m.Register("", nil)
	require.NoError(t, err)
	assert.Equal(t, -1, id)
	_, err = m.Register("Ctrl+Nope", nil)
	assert.Error(t, err)

	assert.False(t, m.Observe(captured(keys.Escape, true, keys.ModNone)))
	assert.True(t, m.Observe(captured(keys.End, true, keys.ModLeftCtrl|keys.ModLeftAlt)))
	require.Eventually(t, func() bool { return release.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, stop.Load())

	m.Clear()
	assert.False(t, m.Observe(captured(keys.Escape, true, keys.ModCtrl|keys.ModAlt)))
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Observe(captured(keys.Escape, true, keys.ModCtrl|keys.ModAlt)))
}
