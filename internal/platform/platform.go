// Package platform selects the keyboard backend of the running OS.
package platform

import (
	"errors"
	"log/slog"

	"keyrelay/internal/layout"
	"keyrelay/internal/simulator"
)

var ErrUnsupported = errors.New("platform: no keyboard backend for this OS")

// Backend is everything a server needs from the OS: layout answers, key
// injection and layout change notifications. It must be used from the
// goroutine that opened it.
type Backend interface {
	layout.Introspector
	simulator.Injector
	// LayoutChanged fires when the OS keymap or layout changes. The
	// receiver calls Refresh on its own goroutine.
	LayoutChanged() <-chan struct{}
	Close() error
}

// Opener opens a backend on the calling goroutine.
type Opener func(logger *slog.Logger) (Backend, error)

// Open opens the backend for this OS.
func Open(logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return open(logger.With("component", "platform"))
}
