package x11

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"

	"keyrelay/internal/layout"
)

var (
	ErrDisplay = errors.New("x11: cannot open display")
	ErrNoXTest = errors.New("x11: XTEST extension unavailable")
)

// Backend injects keys through XTEST and answers layout questions from the
// core keyboard mapping.
type Backend struct {
	*layout.Layout

	conn    *xgb.Conn
	src     *Source
	changed chan struct{}
	done    chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

// Open connects to display, or to $DISPLAY when it is empty.
func Open(display string, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("backend", "x11")

	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDisplay, err)
	}
	if err := xtest.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrNoXTest, err)
	}

	src := newSource(conn)
	l, err := layout.New(src, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}

	b := &Backend{
		Layout:  l,
		conn:    conn,
		src:     src,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go b.watch()
	return b, nil
}

func (b *Backend) SendKey(code uint32, press bool) error {
	typ := byte(xproto.KeyRelease)
	if press {
		typ = xproto.KeyPress
	}
	err := xtest.FakeInputChecked(b.conn, typ, byte(code), xproto.TimeCurrentTime, b.src.root, 0, 0, 0).Check()
	if err != nil {
		return fmt.Errorf("x11: fake input: %w", err)
	}
	return nil
}

func (b *Backend) CodeRange() (uint32, uint32) { return uint32(b.src.min), uint32(b.src.max) }

func (b *Backend) LayoutChanged() <-chan struct{} { return b.changed }

// watch turns keyboard MappingNotify events into layout change signals. It
// never touches the layout itself.
func (b *Backend) watch() {
	for {
		ev, xerr := b.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			b.logger.Debug("x11 error event", "error", xerr.Error())
			continue
		}
		n, ok := ev.(xproto.MappingNotifyEvent)
		if !ok || n.Request != xproto.MappingKeyboard {
			continue
		}
		b.logger.Debug("keyboard mapping changed", "first", n.FirstKeycode, "count", n.Count)
		select {
		case b.changed <- struct{}{}:
		case <-b.done:
			return
		default:
		}
	}
}

func (b *Backend) Close() error {
	b.once.Do(func() {
		close(b.done)
		b.conn.Close()
	})
	return nil
}
