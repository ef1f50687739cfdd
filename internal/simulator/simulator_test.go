package simulator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyrelay/internal/keys"
	"keyrelay/internal/layout"
	lt "keyrelay/internal/layout/layouttest"
)

type sent struct {
	code  uint32
	press bool
}

// recorder is an Injector that mirrors the modifier keys it sees back into
// the fixture source, the way a real display server would.
type recorder struct {
	src    *lt.Source
	held   map[keys.Modifiers]bool
	locks  keys.Modifiers
	bits   map[uint32]keys.Modifiers
	events []sent
	fail   error
}

func newRecorder(src *lt.Source, altRight keys.Modifiers) *recorder {
	return &recorder{
		src:  src,
		held: make(map[keys.Modifiers]bool),
		bits: map[uint32]keys.Modifiers{
			lt.Code(keys.ShiftLeft):    keys.ModShift,
			lt.Code(keys.ShiftRight):   keys.ModShift,
			lt.Code(keys.ControlLeft):  keys.ModCtrl,
			lt.Code(keys.ControlRight): keys.ModCtrl,
			lt.Code(keys.AltLeft):      keys.ModAlt,
			lt.Code(keys.AltRight):     altRight,
			lt.Code(keys.MetaLeft):     keys.ModMeta,
		},
	}
}

func (r *recorder) SendKey(code uint32, press bool) error {
	if r.fail != nil {
		return r.fail
	}
	r.events = append(r.events, sent{code, press})
	switch code {
	case lt.Code(keys.CapsLock):
		if press {
			r.locks ^= keys.ModCaps
		}
	case lt.Code(keys.NumLock):
		if press {
			r.locks ^= keys.ModNum
		}
	default:
		if bit, ok := r.bits[code]; ok {
			r.held[bit] = press
		}
	}
	mods := r.locks
	for bit, down := range r.held {
		if down {
			mods |= bit
		}
	}
	r.src.SetModifiers(mods)
	return nil
}

func (r *recorder) CodeRange() (uint32, uint32) { return lt.MinCode, lt.MaxCode }

// trace renders the recorded events as "+Key" and "-Key".
func (r *recorder) trace() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		name := "?"
		if p, ok := keys.X11.Key(e.code); ok {
			name = p.String()
		}
		if e.press {
			out = append(out, "+"+name)
		} else {
			out = append(out, "-"+name)
		}
	}
	return out
}

func (r *recorder) reset() { r.events = nil }

type runeRecorder struct {
	*recorder
	runes []rune
}

func (r *runeRecorder) SendRune(c rune, press bool) error {
	if press {
		r.runes = append(r.runes, c)
	}
	return nil
}

func setup(t *testing.T, name string, groups ...[]lt.Key) (*Simulator, *recorder, *lt.Source) {
	t.Helper()
	src := lt.NewSource(name, groups...)
	l, err := layout.New(src, nil)
	require.NoError(t, err)
	altRight := keys.ModAlt
	if name == "fr" {
		altRight = keys.ModAltGr
	}
	rec := newRecorder(src, altRight)
	return New(l, rec), rec, src
}

func TestTranslateDigitOnFrenchPressesShift(t *testing.T) {
	sim, rec, _ := setup(t, "fr", lt.French())

	require.NoError(t, sim.SimulateServerEvent(keys.WithKey(keys.Char('1'), true, keys.ModNone), keys.ModeTranslate))
	assert.Equal(t, []string{"+ShiftLeft", "+Num1"}, rec.trace())

	rec.reset()
	require.NoError(t, sim.SimulateServerEvent(keys.WithKey(keys.Char('1'), false, keys.ModNone), keys.ModeTranslate))
	assert.Equal(t, []string{"-Num1"}, rec.trace())

	rec.reset()
	require.NoError(t, sim.SimulateServerEvent(keys.WithKey(keys.Char('a'), true, keys.ModNone), keys.ModeTranslate))
	assert.Equal(t, []string{"-ShiftLeft", "+KeyQ"}, rec.trace())
}

func TestTranslateAltGrCharacter(t *testing.T) {
	sim, rec, _ := setup(t, "fr", lt.French())

	require.NoError(t, sim.SimulateKeyEvent(keys.WithKey(keys.Char('€'), true, keys.ModNone)))
	assert.Equal(t, []string{"+AltRight", "+KeyE"}, rec.trace())
}

func TestMapReplaysPhysicalKeyWithModifiers(t *testing.T) {
	sim, rec, _ := setup(t, "fr", lt.French())
	evt := keys.KeyEvent{
		Key:   keys.Char('\x7f'),
		Press: true,
		Raw:   &keys.RawKeyEvent{Key: keys.Delete, Press: true, Modifiers: keys.ModLeftShift},
	}

	require.NoError(t, sim.SimulateServerEvent(evt, keys.ModeMap))
	assert.Equal(t, []string{"+ShiftLeft", "+Delete"}, rec.trace())
	assert.Equal(t, []uint32{lt.Code(keys.ShiftLeft), lt.Code(keys.Delete)}, sim.Pressed())
}

func TestMapWithoutRawEvent(t *testing.T) {
	sim, rec, _ := setup(t, "us", lt.US())

	require.NoError(t, sim.SimulateServerEvent(keys.WithKey(keys.Physical(keys.KeyQ), true, keys.ModCtrl), keys.ModeMap))
	assert.Equal(t, []string{"+ControlLeft", "+KeyQ"}, rec.trace())

	err := sim.SimulateServerEvent(keys.WithKey(keys.Char('q'), true, keys.ModNone), keys.ModeMap)
	assert.ErrorIs(t, err, ErrNoRawEvent)
}

func TestAutoModeUnsupported(t *testing.T) {
	sim, rec, _ := setup(t, "us", lt.US())
	err := sim.SimulateServerEvent(keys.WithKey(keys.Char('a'), true, keys.ModNone), keys.ModeAuto)
	assert.ErrorIs(t, err, ErrModeUnsupported)
	assert.Empty(t, rec.events)
}

func TestShortcutKeepsControl(t *testing.T) {
	sim, rec, _ := setup(t, "fr", lt.French())

	require.NoError(t, sim.SimulateServerEvent(keys.WithKey(keys.Char('a'), true, keys.ModLeftCtrl), keys.ModeTranslate))
	assert.Equal(t, []string{"+ControlLeft", "+KeyQ"}, rec.trace())
}

func TestTranslateModifierKeyMovesState(t *testing.T) {
	sim, rec, _ := setup(t, "us", lt.US())

	require.NoError(t, sim.SimulateServerEvent(keys.WithKey(keys.Physical(keys.ControlRight), true, keys.ModNone), keys.ModeTranslate))
	assert.Equal(t, []string{"+ControlLeft"}, rec.trace())

	rec.reset()
	require.NoError(t, sim.SimulateServerEvent(keys.WithKey(keys.Physical(keys.ControlRight), false, keys.ModRightCtrl), keys.ModeTranslate))
	assert.Equal(t, []string{"-ControlLeft"}, rec.trace())
}

func TestCapsLockClearedForLetters(t *testing.T) {
	sim, rec, src := setup(t, "us", lt.US())
	src.SetModifiers(keys.ModCaps)
	rec.locks = keys.ModCaps

	require.NoError(t, sim.SimulateKeyEvent(keys.WithKey(keys.Char('a'), true, keys.ModNone)))
	assert.Equal(t, []string{"+CapsLock", "-CapsLock", "+KeyA"}, rec.trace())

	rec.reset()
	src.SetModifiers(keys.ModCaps)
	rec.locks = keys.ModCaps
	require.NoError(t, sim.SimulateKeyEvent(keys.WithKey(keys.Char('1'), true, keys.ModNone)))
	assert.Equal(t, []string{"+Num1"}, rec.trace())
}

func TestCharMissingFromLayoutTypesDeadKeySequence(t *testing.T) {
	sim, rec, _ := setup(t, "fr", lt.French())

	require.NoError(t, sim.SimulateKeyEvent(keys.WithKey(keys.Char('â'), true, keys.ModNone)))
	assert.Equal(t, []string{"+LeftBracket", "-LeftBracket", "+KeyQ", "-KeyQ"}, rec.trace())

	rec.reset()
	require.NoError(t, sim.SimulateKeyEvent(keys.WithKey(keys.Char('â'), false, keys.ModNone)))
	assert.Empty(t, rec.trace())
}

func TestRemoteDeadKeyComposesLocally(t *testing.T) {
	sim, rec, _ := setup(t, "fr", lt.French())

	require.NoError(t, sim.SimulateKeyEvent(keys.WithKey(keys.Char('¨'), true, keys.ModShift)))
	require.NoError(t, sim.SimulateKeyEvent(keys.WithKey(keys.Char('¨'), false, keys.ModShift)))
	assert.Empty(t, rec.trace())
	assert.True(t, sim.DeadKeyStatus().Composing)

	require.NoError(t, sim.SimulateKeyEvent(keys.WithKey(keys.Char('e'), true, keys.ModNone)))
	require.NoError(t, sim.SimulateKeyEvent(keys.WithKey(keys.Char('e'), false, keys.ModNone)))
	assert.Equal(t, []string{"+ShiftLeft", "+LeftBracket", "-LeftBracket", "-ShiftLeft", "+KeyE", "-KeyE"}, rec.trace())
	assert.False(t, sim.DeadKeyStatus().Composing)
}

func TestComposedTypesEveryRune(t *testing.T) {
	sim, rec, _ := setup(t, "us", lt.US())

	require.NoError(t, sim.SimulateKeyEvent(keys.WithKey(keys.Composed("ab"), true, keys.ModNone)))
	require.NoError(t, sim.SimulateKeyEvent(keys.WithKey(keys.Composed("ab"), false, keys.ModNone)))
	assert.Equal(t, []string{"+KeyA", "-KeyA", "+KeyB", "-KeyB"}, rec.trace())
}

func TestUnknownCharRebindsUnusedKeycode(t *testing.T) {
	sim, rec, src := setup(t, "us", lt.US())

	require.NoError(t, sim.SimulateChar('é'))
	rebinds := src.Rebinds()
	require.Len(t, rebinds, 1)
	assert.Equal(t, layout.RuneToKeysym('é'), rebinds[0].Keysym)
	assert.Equal(t, []sent{{rebinds[0].Code, true}, {rebinds[0].Code, false}}, rec.events)

	rec.reset()
	require.NoError(t, sim.SimulateChar('é'))
	assert.Len(t, src.Rebinds(), 1, "binding is reused")
}

func TestUnknownCharPrefersRuneInjector(t *testing.T) {
	src := lt.NewSource("us", lt.US())
	l, err := layout.New(src, nil)
	require.NoError(t, err)
	inj := &runeRecorder{recorder: newRecorder(src, keys.ModAlt)}
	sim := New(l, inj)

	require.NoError(t, sim.SimulateChar('ł'))
	assert.Equal(t, []rune{'ł'}, inj.runes)
	assert.Empty(t, src.Rebinds())
}

func TestSimulateCharRestoresModifiers(t *testing.T) {
	sim, rec, src := setup(t, "us", lt.US())
	src.SetModifiers(keys.ModCtrl)
	rec.held[keys.ModCtrl] = true

	require.NoError(t, sim.SimulateChar('A'))
	assert.Equal(t, []string{"+ShiftLeft", "-ControlLeft", "+KeyA", "-KeyA", "-ShiftLeft", "+ControlLeft"}, rec.trace())
}

func TestRebindRefusedIsUnmappedChar(t *testing.T) {
	sim, _, src := setup(t, "us", lt.US())
	src.RefuseRebind()

	err := sim.SimulateChar('é')
	assert.ErrorIs(t, err, ErrUnmappedChar)
	assert.ErrorIs(t, err, layout.ErrRebindFailed)
}

func TestSimulateNativeRejectsOutOfRange(t *testing.T) {
	sim, rec, _ := setup(t, "us", lt.US())
	assert.ErrorIs(t, sim.SimulateNative(3, true), ErrInjection)
	assert.Empty(t, rec.events)

	rec.fail = errors.New("display gone")
	assert.ErrorIs(t, sim.SimulateNative(lt.Code(keys.KeyA), true), ErrInjection)
	assert.Empty(t, sim.Pressed())
}

func TestSimulatePhysicalUnmapped(t *testing.T) {
	sim, _, _ := setup(t, "us", lt.US())
	assert.ErrorIs(t, sim.SimulatePhysical(keys.F5, true), ErrUnmappedPhysicalKey)
}

func TestKeySymUsesLocalLevel(t *testing.T) {
	sim, rec, _ := setup(t, "fr", lt.French())

	require.NoError(t, sim.SimulateKeyEvent(keys.WithKey(keys.KeySym(uint32(layout.RuneToKeysym('1'))), true, keys.ModNone)))
	assert.Equal(t, []string{"+ShiftLeft", "+Num1"}, rec.trace())

	err := sim.SimulateKeyEvent(keys.WithKey(keys.KeySym(0xfffff0), true, keys.ModNone))
	assert.ErrorIs(t, err, ErrUnmappedKey)
}

func TestSessionReleasesEverything(t *testing.T) {
	sim, rec, src := setup(t, "us", lt.US())
	src.SetModifiers(keys.ModAlt)
	rec.held[keys.ModAlt] = true

	sess := sim.Begin()
	assert.Equal(t, []string{"-AltLeft"}, rec.trace())

	rec.reset()
	require.NoError(t, sim.SimulatePhysical(keys.KeyA, true))
	require.NoError(t, sim.SimulateKeyEvent(keys.WithKey(keys.Physical(keys.KeyB), true, keys.ModShift)))
	rec.reset()

	sess.Release()
	assert.ElementsMatch(t, []string{"-KeyA", "-KeyB", "-ShiftLeft"}, rec.trace())
	assert.Empty(t, sim.Pressed())

	rec.reset()
	sess.Release()
	assert.Empty(t, rec.events)
}

func TestReleaseModifiersKeepsLocks(t *testing.T) {
	sim, rec, src := setup(t, "us", lt.US())
	src.SetModifiers(keys.ModNum | keys.ModShift)
	rec.held[keys.ModShift] = true
	rec.locks = keys.ModNum

	require.NoError(t, sim.ReleaseModifiers())
	assert.Equal(t, []string{"-ShiftLeft"}, rec.trace())
}
