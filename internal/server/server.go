// Package server runs the injection engine on one goroutine locked to its OS
// thread. Callers talk to it through a Handle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"keyrelay/internal/keys"
	"keyrelay/internal/platform"
	"keyrelay/internal/protocol"
	"keyrelay/internal/simulator"
)

var ErrClosed = errors.New("server: closed")

// DefaultPace is the pause after each Send, giving the OS time to apply
// modifier changes before the next event.
const DefaultPace = 10 * time.Millisecond

// Options configures Spawn.
type Options struct {
	Mode keys.ServerMode
	// Open opens the backend on the server goroutine. Defaults to platform.Open.
	Open platform.Opener
	// Pace is slept after each Send. Zero means DefaultPace, negative disables it.
	Pace time.Duration
	// QueueSize bounds the number of messages waiting for the server.
	QueueSize int
	Logger    *slog.Logger
}

// Stats counts what the server did with its messages.
type Stats struct {
	Processed uint64
	Dropped   uint64
	Failed    uint64
}

// Handle is the sending side of a running server. It is safe for concurrent
// use.
type Handle struct {
	mode   keys.ServerMode
	msgs   chan []byte
	done   chan struct{}
	pace   time.Duration
	logger *slog.Logger

	closeOnce sync.Once

	processed atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// Spawn opens the backend on a new goroutine and returns once it is ready
// to inject. Backend failures are returned here.
func Spawn(ctx context.Context, opts Options) (*Handle, error) {
	if opts.Mode == keys.ModeAuto {
		return nil, fmt.Errorf("%w: %s", simulator.ErrModeUnsupported, opts.Mode)
	}
	if opts.Open == nil {
		opts.Open = platform.Open
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	pace := opts.Pace
	switch {
	case pace == 0:
		pace = DefaultPace
	case pace < 0:
		pace = 0
	}

	h := &Handle{
		mode:   opts.Mode,
		msgs:   make(chan []byte, opts.QueueSize),
		done:   make(chan struct{}),
		pace:   pace,
		logger: opts.Logger.With("component", "server", "mode", opts.Mode.String()),
	}
	ready := make(chan error, 1)
	go h.run(ctx, opts.Open, ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return h, nil
}

// Mode returns the fixed server mode.
func (h *Handle) Mode() keys.ServerMode { return h.mode }

// Send queues evt and then sleeps the pacing delay.
func (h *Handle) Send(evt keys.KeyEvent) error {
	if err := h.SendMessage(protocol.KeyEventMessage(evt)); err != nil {
		return err
	}
	if h.pace > 0 {
		time.Sleep(h.pace)
	}
	return nil
}

// SendMessage queues one message without pacing.
func (h *Handle) SendMessage(m protocol.Message) error {
	b, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	return h.SendBytes(b)
}

// SendBytes queues an already encoded message, as received from a
// transport. Bytes that fail to decode are dropped by the server.
func (h *Handle) SendBytes(b []byte) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}
	select {
	case h.msgs <- b:
		return nil
	case <-h.done:
		return ErrClosed
	}
}

// ReleaseKeys asks the server to release every key it holds.
func (h *Handle) ReleaseKeys() error {
	return h.SendMessage(protocol.ReleaseKeysMessage())
}

// Close stops the server and waits until every held key is released.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		if err := h.SendMessage(protocol.ExitMessage()); err != nil && !errors.Is(err, ErrClosed) {
			h.logger.Warn("exit message not delivered", "error", err)
		}
	})
	<-h.done
	return nil
}

// Done is closed when the server goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Stats returns message counters.
func (h *Handle) Stats() Stats {
	return Stats{
		Processed: h.processed.Load(),
		Dropped:   h.dropped.Load(),
		Failed:    h.failed.Load(),
	}
}

func (h *Handle) run(ctx context.Context, open platform.Opener, ready chan<- error) {
	defer close(h.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	be, err := open(h.logger)
	if err != nil {
		ready <- fmt.Errorf("server: open backend: %w", err)
		return
	}
	defer func() {
		if err := be.Close(); err != nil {
			h.logger.Warn("backend close failed", "error", err)
		}
	}()

	sim := simulator.New(be, be, simulator.WithLogger(h.logger))
	sess := sim.Begin()
	defer sess.Release()

	ready <- nil
	h.logger.Info("server started")
	defer h.logger.Info("server stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-be.LayoutChanged():
			if err := be.Refresh(); err == nil {
				sim.LayoutChanged()
			}
		case b := <-h.msgs:
			if !h.handle(sim, b) {
				return
			}
		}
	}
}

// handle runs one message and reports whether the loop should continue.
func (h *Handle) handle(sim *simulator.Simulator, b []byte) bool {
	m, err := protocol.Decode(b)
	if err != nil {
		h.dropped.Add(1)
		h.logger.Debug("dropping malformed message", "error", err, "len", len(b))
		return true
	}

	switch m.Type {
	case protocol.TypeExit:
		return false
	case protocol.TypeReleaseKeys:
		sim.ReleaseAll()
		err = sim.ReleaseModifiers()
	case protocol.TypeKeyEvent:
		err = sim.SimulateServerEvent(m.Event, h.mode)
	case protocol.TypeChar:
		err = sim.SimulateChar(m.Rune)
	case protocol.TypeKeycode:
		err = sim.SimulateNative(m.Code, m.Press)
	}
	if err != nil {
		h.failed.Add(1)
		h.logger.Warn("event dropped", "message", m.String(), "error", err)
		return true
	}
	h.processed.Add(1)
	return true
}
