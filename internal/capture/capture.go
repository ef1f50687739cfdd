// Package capture reads key events from the local hardware for sending to
// a remote server.
package capture

import (
	"errors"
	"log/slog"

	"keyrelay/internal/hotkey"
	"keyrelay/internal/keys"
)

var (
	ErrUnsupported = errors.New("capture: not supported on this platform")
	ErrNoKeyboard  = errors.New("capture: no keyboard device found")
)

// Source delivers captured events. The channel is closed when capturing
// stops.
type Source interface {
	Events() <-chan keys.KeyEvent
	Close() error
}

// Options configure a capture source.
type Options struct {
	// Device is the evdev node to read on Linux. Empty selects the first
	// keyboard.
	Device string
	// Grab keeps captured keys from reaching local applications.
	Grab bool
	// AltGr reports the right Alt key as AltGr instead of Alt.
	AltGr bool
	// Hotkeys sees every captured press.
	Hotkeys *hotkey.Manager
	// Buffer is the event channel capacity. Events are dropped when full.
	Buffer int
	Logger *slog.Logger
}

// Open starts capturing on this OS.
func Open(opts Options) (Source, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Logger = opts.Logger.With("component", "capture")
	if opts.Buffer <= 0 {
		opts.Buffer = 1000
	}
	return open(opts)
}

// tracker turns physical key transitions into KeyEvents. Each event
// carries the modifier state in effect before it, folded to logical bits.
type tracker struct {
	held    keys.Modifiers
	locks   keys.Modifiers
	altGr   bool
	hotkeys *hotkey.Manager
}

func (t *tracker) event(p keys.PhysicalKey, press bool, rawCode, scan uint32) keys.KeyEvent {
	before := t.held | t.locks
	evt := keys.KeyEvent{
		Key:       logicalFor(p, before),
		Press:     press,
		Modifiers: before,
		Raw: &keys.RawKeyEvent{
			Key:       p,
			Press:     press,
			Modifiers: before,
			RawCode:   rawCode,
			ScanCode:  scan,
		},
	}

	bit := p.Modifier()
	if t.altGr && p == keys.AltRight {
		bit = keys.ModAltGr
	}
	switch {
	case bit != 0 && press:
		t.held |= bit
	case bit != 0:
		t.held &^= bit
	case press && p == keys.CapsLock:
		t.locks ^= keys.ModCaps
	case press && p == keys.NumLock:
		t.locks ^= keys.ModNum
	}

	t.hotkeys.Observe(evt)
	return evt.Canonical().NormalizeShift()
}

// logicalFor names p the way a US layout would at the given level. The
// receiving server re-resolves characters against its own layout, and
// replays Raw in map mode.
func logicalFor(p keys.PhysicalKey, mods keys.Modifiers) keys.LogicalKey {
	k := p.Logical()
	if k.Kind != keys.KindChar || !mods.Fold().Has(keys.ModShift) {
		return k
	}
	if r, ok := usShifted[k.Rune]; ok {
		return keys.Char(r)
	}
	return k
}

var usShifted = map[rune]rune{
	'`': '~', '1': '!', '2': '@', '3': '#', '4': '$', '5': '%',
	'6': '^', '7': '&', '8': '*', '9': '(', '0': ')', '-': '_',
	'=': '+', '[': '{', ']': '}', '\\': '|', ';': ':', '\'': '"',
	',': '<', '.': '>', '/': '?',
}

// send delivers evt without blocking the capture loop.
func send(ch chan<- keys.KeyEvent, evt keys.KeyEvent, logger *slog.Logger) {
	select {
	case ch <- evt:
	default:
		logger.Warn("event buffer full, dropping", "event", evt.String())
	}
}
