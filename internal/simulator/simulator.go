// Package simulator turns key events into native key presses for the active
// layout. It is the only place that injects input.
package simulator

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"unicode"

	"keyrelay/internal/deadkey"
	"keyrelay/internal/keys"
	"keyrelay/internal/layout"
)

var (
	ErrInjection           = errors.New("simulator: injection rejected")
	ErrUnmappedPhysicalKey = errors.New("simulator: physical key not in active layout")
	ErrUnmappedKey         = errors.New("simulator: logical key has no local equivalent")
	ErrUnmappedChar        = errors.New("simulator: character not representable")
	ErrNoUnusedKeycode     = layout.ErrNoUnusedKeycode
	ErrModeUnsupported     = errors.New("simulator: server mode not supported")
	ErrNoRawEvent          = errors.New("simulator: event carries no physical key to replay")
)

// Injector emits native key events.
type Injector interface {
	SendKey(code uint32, press bool) error
	// CodeRange returns the valid native codes, inclusive.
	CodeRange() (min, max uint32)
}

// RuneInjector is implemented by injectors that can type any character
// without a key, such as Windows unicode input.
type RuneInjector interface {
	SendRune(r rune, press bool) error
}

// Simulator is owned by one goroutine. Use Begin to get a Session whose
// Release undoes every press still held.
type Simulator struct {
	intro    layout.Introspector
	inj      Injector
	dead     *deadkey.Resolver
	pressed  map[uint32]struct{}
	charHeld map[rune]uint32
	logger   *slog.Logger
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// New builds a simulator over a layout and an injector.
func New(intro layout.Introspector, inj Injector, opts ...Option) *Simulator {
	s := &Simulator{
		intro:    intro,
		inj:      inj,
		pressed:  make(map[uint32]struct{}),
		charHeld: make(map[rune]uint32),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("component", "simulator")
	s.dead = deadkey.New(intro, s.logger)
	return s
}

// DeadKeyStatus reports the composition in flight.
func (s *Simulator) DeadKeyStatus() keys.DeadKeyStatus { return s.dead.Status() }

// LayoutChanged drops state tied to the previous layout.
func (s *Simulator) LayoutChanged() { s.dead.Reset() }

// Pressed returns the native codes currently held, lowest first.
func (s *Simulator) Pressed() []uint32 {
	out := make([]uint32, 0, len(s.pressed))
	for c := range s.pressed {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SimulateNative emits one native key event and tracks it in the pressed set.
func (s *Simulator) SimulateNative(code uint32, press bool) error {
	lo, hi := s.inj.CodeRange()
	if code < lo || code > hi {
		return fmt.Errorf("%w: code %d outside %d..%d", ErrInjection, code, lo, hi)
	}
	if err := s.inj.SendKey(code, press); err != nil {
		return fmt.Errorf("%w: code %d: %w", ErrInjection, code, err)
	}
	if press {
		s.pressed[code] = struct{}{}
	} else {
		delete(s.pressed, code)
	}
	return nil
}

// SimulatePhysical presses or releases the native key at a physical position.
func (s *Simulator) SimulatePhysical(p keys.PhysicalKey, press bool) error {
	code, ok := s.intro.PhysicalToNative(p)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnmappedPhysicalKey, p)
	}
	return s.SimulateNative(code, press)
}

// SimulateChar types r and restores the modifiers held before.
func (s *Simulator) SimulateChar(r rune) error {
	before, err := s.observedModifiers()
	if err != nil {
		return err
	}
	typeErr := s.typeRune(r, keys.ModNone)
	if err := s.reconcileTo(before); err != nil && typeErr == nil {
		return err
	}
	return typeErr
}

// SimulateKeyEvent drives modifiers to the event's state, then injects the
// key. Characters go through dead-key resolution.
func (s *Simulator) SimulateKeyEvent(evt keys.KeyEvent) error {
	evt = evt.Canonical()
	k := evt.Key
	switch k.Kind {
	case keys.KindChar:
		return s.simulateCharEvent(k.Rune, evt.Press, evt.Modifiers)

	case keys.KindComposed:
		if !evt.Press {
			return nil
		}
		for _, r := range k.Text {
			if err := s.typeRune(r, evt.Modifiers); err != nil {
				return err
			}
		}
		return nil

	case keys.KindRawCode:
		if err := s.reconcileTo(evt.Modifiers); err != nil {
			return err
		}
		return s.SimulateNative(k.Code, evt.Press)

	case keys.KindKeySym:
		e, ok := s.intro.EventForKeysym(layout.Keysym(k.Code))
		if !ok {
			return fmt.Errorf("%w: keysym %s", ErrUnmappedKey, layout.Keysym(k.Code))
		}
		target := evt.Modifiers&^(keys.ModShift|keys.ModAltGr) | e.Modifiers
		if err := s.reconcileTo(target); err != nil {
			return err
		}
		return s.SimulateNative(e.Key.Code, evt.Press)
	}

	p, ok := k.PhysicalKey()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnmappedKey, k)
	}
	if err := s.reconcileTo(evt.Modifiers); err != nil {
		return err
	}
	return s.SimulatePhysical(p, evt.Press)
}

// SimulateServerEvent replays a remote event under a server mode.
func (s *Simulator) SimulateServerEvent(evt keys.KeyEvent, mode keys.ServerMode) error {
	evt = evt.Canonical()
	switch mode {
	case keys.ModeMap:
		return s.replayPhysical(evt)
	case keys.ModeTranslate:
		return s.translate(evt)
	}
	return fmt.Errorf("%w: %s", ErrModeUnsupported, mode)
}

// replayPhysical presses the key the sender pressed, with the sender's
// modifier state.
func (s *Simulator) replayPhysical(evt keys.KeyEvent) error {
	raw := evt.Raw
	if raw == nil {
		if evt.Key.Kind != keys.KindPhysical {
			return fmt.Errorf("%w: %s", ErrNoRawEvent, evt.Key)
		}
		raw = &keys.RawKeyEvent{Key: evt.Key.Phys, Press: evt.Press, Modifiers: evt.Modifiers}
	}
	if err := s.reconcileTo(raw.Modifiers); err != nil {
		return err
	}
	return s.SimulatePhysical(raw.Key, raw.Press)
}

// translate reinterprets the sender's key for the local layout. Characters
// are typed with local levels, modifier keys only move the modifier state.
func (s *Simulator) translate(evt keys.KeyEvent) error {
	k := evt.Key
	if k.IsChar() || k.Kind == keys.KindKeySym {
		return s.SimulateKeyEvent(evt)
	}
	if k.Kind == keys.KindRawCode {
		if evt.Raw == nil {
			return fmt.Errorf("%w: raw code %#x is machine specific", ErrUnmappedKey, k.Code)
		}
		k = keys.Physical(evt.Raw.Key)
	}
	p, ok := k.PhysicalKey()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnmappedKey, k)
	}
	if p.IsModifier() {
		target := evt.Modifiers
		if bit := p.Modifier().Fold(); evt.Press {
			target |= bit
		} else {
			target &^= bit
		}
		return s.reconcileTo(target)
	}
	return s.SimulateKeyEvent(keys.KeyEvent{Key: keys.Physical(p), Press: evt.Press, Modifiers: evt.Modifiers})
}

// ReleaseModifiers releases every transient modifier. Lock state is kept.
func (s *Simulator) ReleaseModifiers() error {
	return s.reconcile(func(cur keys.Modifiers) keys.Modifiers {
		return cur & (keys.ModCaps | keys.ModNum)
	})
}

// ReleaseAll releases every key in the pressed set. Failures are logged and
// not retried.
func (s *Simulator) ReleaseAll() {
	for _, code := range s.Pressed() {
		if err := s.inj.SendKey(code, false); err != nil {
			s.logger.Warn("release failed", "code", code, "error", err)
		}
		delete(s.pressed, code)
	}
	clear(s.charHeld)
	s.dead.Reset()
}

func (s *Simulator) simulateCharEvent(r rune, press bool, mods keys.Modifiers) error {
	e, ok := s.intro.EventForRune(r)
	if !ok {
		if !press {
			return nil
		}
		return s.typeRune(r, mods)
	}
	st := layout.Stroke{Modifiers: e.Modifiers, Code: e.Key.Code}

	out := s.dead.Feed(st, press)
	switch out.Action {
	case deadkey.Suppress:
		return nil
	case deadkey.Emit:
		return s.typeRune(out.Rune, mods)
	case deadkey.EmitThenPass:
		if err := s.typeRune(out.Rune, mods); err != nil {
			return err
		}
	}

	if !press {
		code, held := s.charHeld[r]
		if !held {
			return nil
		}
		delete(s.charHeld, r)
		return s.SimulateNative(code, false)
	}
	if err := s.reconcile(charTarget(r, st.Modifiers, mods)); err != nil {
		return err
	}
	if err := s.SimulateNative(st.Code, true); err != nil {
		return err
	}
	s.charHeld[r] = st.Code
	return nil
}

// typeRune taps the strokes that produce r, rebinding a free keycode when
// the layout has none.
func (s *Simulator) typeRune(r rune, mods keys.Modifiers) error {
	seq, ok := s.intro.Sequence(r)
	if !ok {
		if ri, ok := s.inj.(RuneInjector); ok {
			if err := ri.SendRune(r, true); err != nil {
				return fmt.Errorf("%w: rune %q: %w", ErrInjection, r, err)
			}
			if err := ri.SendRune(r, false); err != nil {
				return fmt.Errorf("%w: rune %q: %w", ErrInjection, r, err)
			}
			return nil
		}
		st, err := s.intro.BindRune(r)
		if err != nil {
			if errors.Is(err, layout.ErrNoUnusedKeycode) {
				return fmt.Errorf("%w: %q", ErrNoUnusedKeycode, r)
			}
			return fmt.Errorf("%w: %q: %w", ErrUnmappedChar, r, err)
		}
		seq = []layout.Stroke{st}
	}
	for _, st := range seq {
		if err := s.reconcile(charTarget(r, st.Modifiers, mods)); err != nil {
			return err
		}
		if err := s.SimulateNative(st.Code, true); err != nil {
			return err
		}
		if err := s.SimulateNative(st.Code, false); err != nil {
			return err
		}
	}
	return nil
}

// charTarget keeps the sender's shortcut modifiers, the level modifiers of
// the stroke and the local NumLock. CapsLock is cleared for cased letters
// because the stroke level already selects the case.
func charTarget(r rune, level, sender keys.Modifiers) func(keys.Modifiers) keys.Modifiers {
	return func(cur keys.Modifiers) keys.Modifiers {
		t := level | sender&(keys.ModCtrl|keys.ModAlt|keys.ModMeta) | cur&keys.ModNum
		if cur&keys.ModCaps != 0 && unicode.ToUpper(r) == unicode.ToLower(r) {
			t |= keys.ModCaps
		}
		return t
	}
}

func (s *Simulator) reconcileTo(target keys.Modifiers) error {
	return s.reconcile(func(keys.Modifiers) keys.Modifiers { return target })
}

// reconcile injects the modifier presses and releases moving the live state
// to target(live). Modifier keys missing from the layout are skipped.
func (s *Simulator) reconcile(target func(observed keys.Modifiers) keys.Modifiers) error {
	cur, err := s.observedModifiers()
	if err != nil {
		return err
	}
	for _, e := range keys.Diff(cur, target(cur)) {
		err := s.SimulatePhysical(e.Key.Phys, e.Press)
		switch {
		case errors.Is(err, ErrUnmappedPhysicalKey):
			s.logger.Warn("modifier key missing from layout", "key", e.Key.Phys.String())
		case err != nil:
			return err
		}
	}
	return nil
}

// observedModifiers asks the OS, falling back to the modifier keys this
// simulator holds when the query fails.
func (s *Simulator) observedModifiers() (keys.Modifiers, error) {
	cur, err := s.intro.CurrentModifiers()
	if err == nil {
		return cur.Fold(), nil
	}
	s.logger.Debug("modifier query failed, using held keys", "error", err)
	var held keys.Modifiers
	for code := range s.pressed {
		if p, ok := s.intro.NativeToPhysical(code); ok {
			held |= p.Modifier()
		}
	}
	return held.Fold(), nil
}

// Session guarantees that keys pressed through the simulator are released.
type Session struct {
	sim  *Simulator
	once sync.Once
}

// Begin releases stray modifiers and opens a session.
func (s *Simulator) Begin() *Session {
	if err := s.ReleaseModifiers(); err != nil {
		s.logger.Warn("baseline modifier release failed", "error", err)
	}
	return &Session{sim: s}
}

// Release lets go of every held key and modifier. It is safe to call more
// than once.
func (ss *Session) Release() {
	ss.once.Do(func() {
		ss.sim.ReleaseAll()
		if err := ss.sim.ReleaseModifiers(); err != nil {
			ss.sim.logger.Warn("final modifier release failed", "error", err)
		}
	})
}
