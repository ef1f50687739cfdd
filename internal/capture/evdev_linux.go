//go:build linux

package capture

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/holoplot/go-evdev"

	"keyrelay/internal/keys"
)

// key event values
const (
	evRelease = 0
	evPress   = 1
	evRepeat  = 2
)

type evdevSource struct {
	dev    *evdev.InputDevice
	events chan keys.KeyEvent
	once   sync.Once
	logger *slog.Logger
}

func open(opts Options) (Source, error) {
	path := opts.Device
	if path == "" {
		p, err := findKeyboard()
		if err != nil {
			return nil, err
		}
		path = p
	}
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", path, err)
	}
	name, _ := dev.Name()
	if opts.Grab {
		if err := dev.Grab(); err != nil {
			dev.Close()
			return nil, fmt.Errorf("capture: grab %s: %w", path, err)
		}
	}

	t := &tracker{altGr: opts.AltGr, hotkeys: opts.Hotkeys}
	if leds, err := dev.State(evdev.EV_LED); err == nil {
		if leds[evdev.LED_CAPSL] {
			t.locks |= keys.ModCaps
		}
		if leds[evdev.LED_NUML] {
			t.locks |= keys.ModNum
		}
	}

	s := &evdevSource{
		dev:    dev,
		events: make(chan keys.KeyEvent, opts.Buffer),
		logger: opts.Logger.With("device", path),
	}
	s.logger.Info("capturing", "name", name, "grab", opts.Grab)
	go s.read(t)
	return s, nil
}

// findKeyboard returns the first device reporting both KEY_A and KEY_ENTER.
func findKeyboard() (string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return "", fmt.Errorf("capture: list input devices: %w", err)
	}
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}
		codes := dev.CapableEvents(evdev.EV_KEY)
		dev.Close()
		if slices.Contains(codes, evdev.KEY_A) && slices.Contains(codes, evdev.KEY_ENTER) {
			return p.Path, nil
		}
	}
	return "", ErrNoKeyboard
}

func (s *evdevSource) read(t *tracker) {
	defer close(s.events)
	for {
		ev, err := s.dev.ReadOne()
		if err != nil {
			s.logger.Debug("read stopped", "error", err)
			return
		}
		if ev.Type != evdev.EV_KEY || ev.Value == evRepeat {
			continue
		}
		code := uint32(ev.Code)
		p, ok := keys.Evdev.Key(code)
		if !ok {
			s.logger.Debug("unmapped key", "code", code)
			continue
		}
		// RawCode is the X11 keycode so map mode can replay it on X servers.
		send(s.events, t.event(p, ev.Value == evPress, code+8, 0), s.logger)
	}
}

func (s *evdevSource) Events() <-chan keys.KeyEvent { return s.events }

func (s *evdevSource) Close() error {
	var err error
	s.once.Do(func() {
		s.dev.Ungrab()
		err = s.dev.Close()
	})
	return err
}
