package capture

import (
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyrelay/internal/hotkey"
	"keyrelay/internal/keys"
)

func TestTrackerModifiersPrecedeEvent(t *testing.T) {
	tr := &tracker{}

	shift := tr.event(keys.ShiftLeft, true, 50, 0)
	assert.Equal(t, keys.ModNone, shift.Modifiers, "shift press carries the state before it")
	require.NotNil(t, shift.Raw)
	assert.Equal(t, keys.ShiftLeft, shift.Raw.Key)

	a := tr.event(keys.KeyA, true, 38, 0)
	assert.Equal(t, keys.Char('A'), a.Key)
	assert.Equal(t, keys.ModNone, a.Modifiers, "shifted letters are normalized")
	assert.Equal(t, keys.ModShift, a.Raw.Modifiers)
	assert.Equal(t, uint32(38), a.Raw.RawCode)

	tr.event(keys.ShiftLeft, false, 50, 0)
	b := tr.event(keys.KeyB, true, 56, 0)
	assert.Equal(t, keys.Char('b'), b.Key)
	assert.Equal(t, keys.ModNone, b.Modifiers)
}

func TestTrackerShiftedSymbols(t *testing.T) {
	tr := &tracker{}
	tr.event(keys.ShiftRight, true, 0, 0)
	evt := tr.event(keys.Num1, true, 0, 0)
	assert.Equal(t, keys.Char('!'), evt.Key)
	assert.Equal(t, keys.ModShift, evt.Modifiers)
}

func TestTrackerFoldsSides(t *testing.T) {
	tr := &tracker{}
	tr.event(keys.ControlRight, true, 0, 0)
	tr.event(keys.AltLeft, true, 0, 0)
	evt := tr.event(keys.KeyC, true, 0, 0)
	assert.Equal(t, keys.ModCtrl|keys.ModAlt, evt.Modifiers)
	assert.Equal(t, keys.ModCtrl|keys.ModAlt, evt.Raw.Modifiers)
}

func TestTrackerLocks(t *testing.T) {
	tr := &tracker{locks: keys.ModNum}
	tr.event(keys.CapsLock, true, 0, 0)
	tr.event(keys.CapsLock, false, 0, 0)
	evt := tr.event(keys.KeyQ, true, 0, 0)
	assert.Equal(t, keys.ModCaps|keys.ModNum, evt.Modifiers)

	tr.event(keys.CapsLock, true, 0, 0)
	evt = tr.event(keys.KeyQ, false, 0, 0)
	assert.Equal(t, keys.ModNum, evt.Modifiers)
}

func TestTrackerAltGr(t *testing.T) {
	tr := &tracker{altGr: true}
	tr.event(keys.AltRight, true, 0, 0)
	evt := tr.event(keys.KeyE, true, 0, 0)
	assert.Equal(t, keys.ModAltGr, evt.Modifiers)

	tr = &tracker{}
	tr.event(keys.AltRight, true, 0, 0)
	evt = tr.event(keys.KeyE, true, 0, 0)
	assert.Equal(t, keys.ModAlt, evt.Modifiers)
}

func TestTrackerNamedKeys(t *testing.T) {
	tr := &tracker{}
	evt := tr.event(keys.F5, true, 71, 0x3f)
	assert.Equal(t, keys.FunctionKey(5), evt.Key)
	assert.Equal(t, uint32(0x3f), evt.Raw.ScanCode)
}

func TestHotkeys(t *testing.T) {
	var fired atomic.Int32
	hk := hotkey.NewManager(nil)
	_, err := hk.Register("Ctrl+Alt+Escape", func() { fired.Add(1) })
	require.NoError(t, err)

	tr := &tracker{hotkeys: hk}
	tr.event(keys.Escape, true, 0, 0)
	tr.event(keys.ControlLeft, true, 0, 0)
	tr.event(keys.AltRight, true, 0, 0)
	tr.event(keys.Escape, true, 0, 0)
	tr.event(keys.Escape, false, 0, 0)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestSendDropsWhenFull(t *testing.T) {
	ch := make(chan keys.KeyEvent, 1)
	send(ch, keys.WithPhys(keys.KeyA, true), slog.Default())
	send(ch, keys.WithPhys(keys.KeyB, true), slog.Default())
	require.Len(t, ch, 1)
	assert.Equal(t, keys.Physical(keys.KeyA), (<-ch).Key)
}
