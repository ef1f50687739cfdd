// Package hotkey matches captured key events against registered key
// combinations such as "Ctrl+Alt+Escape".
package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"keyrelay/internal/keys"
)

var ErrEmpty = errors.New("hotkey: empty combination")

// Combo is a physical key pressed while exactly Mods are held. Lock
// states are ignored.
type Combo struct {
	Key  keys.PhysicalKey
	Mods keys.Modifiers
}

// Parse reads "Mod+Mod+Key". The last part names a physical key, the
// others are modifiers.
func Parse(s string) (Combo, error) {
	parts := strings.Split(s, "+")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return Combo{}, ErrEmpty
	}
	k, err := keys.ParsePhysicalKey(parts[len(parts)-1])
	if err != nil {
		return Combo{}, fmt.Errorf("hotkey %q: %w", s, err)
	}
	mods, err := keys.ParseModifiers(strings.Join(parts[:len(parts)-1], "+"))
	if err != nil {
		return Combo{}, fmt.Errorf("hotkey %q: %w", s, err)
	}
	return Combo{Key: k, Mods: mods.Fold() &^ (keys.ModCaps | keys.ModNum)}, nil
}

func (c Combo) String() string {
	if c.Mods == keys.ModNone {
		return c.Key.String()
	}
	return strings.ReplaceAll(c.Mods.String(), " | ", "+") + "+" + c.Key.String()
}

// Matches reports whether evt is a press of c.
func (c Combo) Matches(evt keys.KeyEvent) bool {
	if !evt.Press {
		return false
	}
	p, mods, ok := physical(evt)
	if !ok || p != c.Key {
		return false
	}
	return mods.Fold()&^(keys.ModCaps|keys.ModNum) == c.Mods
}

// physical returns the key and modifiers of evt as pressed, before any
// normalization dropped Shift.
func physical(evt keys.KeyEvent) (keys.PhysicalKey, keys.Modifiers, bool) {
	if evt.Raw != nil {
		return evt.Raw.Key, evt.Raw.Modifiers, true
	}
	p, ok := evt.Key.PhysicalKey()
	return p, evt.Modifiers, ok
}

// Manager holds hotkeys and runs their callbacks when a matching event is
// observed.
type Manager struct {
	mu      sync.RWMutex
	hotkeys []*registeredHotkey
	logger  *slog.Logger
}

type registeredHotkey struct {
	combo    Combo
	callback func()
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger.With("component", "hotkey")}
}

// Register adds a hotkey and returns its id. An empty string registers
// nothing.
func (m *Manager) Register(combo string, callback func()) (int, error) {
	if strings.TrimSpace(combo) == "" {
		return -1, nil
	}
	c, err := Parse(combo)
	if err != nil {
		return -1, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = append(m.hotkeys, &registeredHotkey{combo: c, callback: callback})
	return len(m.hotkeys) - 1, nil
}

// Clear removes all hotkeys.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// Observe checks evt against every hotkey and reports whether one
// matched. Callbacks run on their own goroutine so a capture hook is
// never blocked.
func (m *Manager) Observe(evt keys.KeyEvent) bool {
	if m == nil || !evt.Press {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := false
	for _, hk := range m.hotkeys {
		if hk.combo.Matches(evt) {
			m.logger.Info("hotkey triggered", "hotkey", hk.combo.String())
			go hk.callback()
			matched = true
		}
	}
	return matched
}
