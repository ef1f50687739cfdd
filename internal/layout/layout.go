// Package layout answers questions about the active keyboard layout: which
// native key and level types a character, which physical key sits at a
// native code, and how dead keys compose.
package layout

import (
	"errors"
	"fmt"
	"log/slog"

	"keyrelay/internal/keys"
)

var (
	ErrNoUnusedKeycode = errors.New("layout: no unused keycode left to rebind")
	ErrRebindFailed    = errors.New("layout: keycode rebind rejected")
	ErrLoadFailed      = errors.New("layout: keymap load failed")
)

// Introspector is the layout capability the simulator depends on.
type Introspector interface {
	PhysicalToNative(p keys.PhysicalKey) (uint32, bool)
	NativeToPhysical(code uint32) (keys.PhysicalKey, bool)
	// EventForRune returns the stroke typing r under the active group as a
	// RawCode event. A character reachable only through a dead key returns
	// that dead key.
	EventForRune(r rune) (keys.KeyEvent, bool)
	EventForKeysym(sym Keysym) (keys.KeyEvent, bool)
	// Sequence returns the strokes typing r: a direct key, a dead key and
	// space, or a dead key and the base character.
	Sequence(r rune) ([]Stroke, bool)
	CurrentModifiers() (keys.Modifiers, error)
	DeadKeyLeader(s Stroke) (rune, bool)
	ResolveDeadKey(lead, next Stroke) keys.ResolvedDeadKey
	// BindRune assigns r to a free native code and returns its stroke.
	BindRune(r rune) (Stroke, error)
	// Refresh reloads the layout. On failure the previous layout stays.
	Refresh() error
}

// Source is the OS side of a Layout.
type Source interface {
	Load() (*Keymap, error)
	ActiveGroup() (int, error)
	Modifiers() (keys.Modifiers, error)
	Rebind(code uint32, sym Keysym) error
}

// Layout implements Introspector over a Source. It is owned by a single
// goroutine.
type Layout struct {
	src    Source
	km     *Keymap
	bound  map[rune]Stroke
	logger *slog.Logger
}

// New loads the initial keymap. A load failure here is an environment error.
func New(src Source, logger *slog.Logger) (*Layout, error) {
	if logger == nil {
		logger = slog.Default()
	}
	km, err := src.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	l := &Layout{
		src:    src,
		km:     km,
		bound:  make(map[rune]Stroke),
		logger: logger.With("component", "layout"),
	}
	l.logger.Info("keymap loaded", "name", km.Name, "groups", km.Groups(), "unused", len(km.unused))
	return l, nil
}

// Keymap returns the current snapshot.
func (l *Layout) Keymap() *Keymap { return l.km }

func (l *Layout) activeGroup() int {
	g, err := l.src.ActiveGroup()
	if err != nil {
		l.logger.Debug("active group query failed", "error", err)
		return 0
	}
	return keys.GroupFromInt(g).Index()
}

// PhysicalToNative returns the native code of a physical key.
func (l *Layout) PhysicalToNative(p keys.PhysicalKey) (uint32, bool) { return l.km.Code(p) }

// NativeToPhysical returns the physical key at a native code.
func (l *Layout) NativeToPhysical(code uint32) (keys.PhysicalKey, bool) { return l.km.Physical(code) }

// EventForRune returns the press typing r in the active group, falling back
// to a rebound code and then to a dead key showing r.
func (l *Layout) EventForRune(r rune) (keys.KeyEvent, bool) {
	g := l.activeGroup()
	if s, ok := l.km.Stroke(g, r); ok {
		return s.Event(true), true
	}
	if s, ok := l.bound[r]; ok {
		return s.Event(true), true
	}
	if s, ok := l.km.Dead(g).LeaderForGlyph(r); ok {
		return s.Event(true), true
	}
	return keys.KeyEvent{}, false
}

// EventForKeysym returns the press producing sym in the active group.
func (l *Layout) EventForKeysym(sym Keysym) (keys.KeyEvent, bool) {
	if s, ok := l.km.StrokeForKeysym(l.activeGroup(), sym); ok {
		return s.Event(true), true
	}
	if r := KeysymToRune(sym); r != 0 {
		return l.EventForRune(r)
	}
	return keys.KeyEvent{}, false
}

// Sequence returns the strokes typing r in the active group.
func (l *Layout) Sequence(r rune) ([]Stroke, bool) {
	g := l.activeGroup()
	if s, ok := l.km.Stroke(g, r); ok {
		return []Stroke{s}, true
	}
	if s, ok := l.bound[r]; ok {
		return []Stroke{s}, true
	}
	dead := l.km.Dead(g)
	if lead, ok := dead.LeaderForGlyph(r); ok {
		if space, ok := l.km.Stroke(g, ' '); ok {
			if res := dead.Resolve(lead, space); res.Result == keys.Combined && res.Rune == r {
				return []Stroke{lead, space}, true
			}
		}
	}
	if lead, next, ok := dead.Composition(r); ok {
		return []Stroke{lead, next}, true
	}
	return nil, false
}

// CurrentModifiers returns the OS modifier state folded to logical bits.
func (l *Layout) CurrentModifiers() (keys.Modifiers, error) {
	m, err := l.src.Modifiers()
	if err != nil {
		return keys.ModNone, err
	}
	return m.Fold(), nil
}

// DeadKeyLeader returns the glyph of the dead key at s.
func (l *Layout) DeadKeyLeader(s Stroke) (rune, bool) {
	return l.km.Dead(l.activeGroup()).Leader(s)
}

// ResolveDeadKey combines a pending leader with the next stroke.
func (l *Layout) ResolveDeadKey(lead, next Stroke) keys.ResolvedDeadKey {
	return l.km.Dead(l.activeGroup()).Resolve(lead, next)
}

// BindRune binds r to the highest unused native code. Bindings last until
// the next Refresh.
func (l *Layout) BindRune(r rune) (Stroke, error) {
	if s, ok := l.bound[r]; ok {
		return s, nil
	}
	free := l.km.Unused()
	if len(free) == 0 {
		return Stroke{}, ErrNoUnusedKeycode
	}
	code, sym := free[len(free)-1], RuneToKeysym(r)
	if err := l.src.Rebind(code, sym); err != nil {
		return Stroke{}, fmt.Errorf("%w: %#x to %s: %w", ErrRebindFailed, code, sym, err)
	}
	l.km.Bind(code, sym)
	s := Stroke{Code: code}
	l.bound[r] = s
	l.logger.Debug("rebound keycode", "code", code, "keysym", sym.String())
	return s, nil
}

// Refresh reloads the keymap from the source and drops rebound codes. On
// failure the previous keymap stays in use.
func (l *Layout) Refresh() error {
	km, err := l.src.Load()
	if err != nil {
		l.logger.Warn("keymap reload failed, keeping previous layout", "error", err)
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	l.km = km
	l.bound = make(map[rune]Stroke)
	l.logger.Info("keymap reloaded", "name", km.Name, "groups", km.Groups())
	return nil
}
