//go:build windows

package win32

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"keyrelay/internal/layout"
)

// PollInterval is how often the foreground layout is checked for changes.
var PollInterval = 500 * time.Millisecond

// Backend injects scan codes with SendInput. Characters missing from the
// layout are typed as unicode input instead of rebinding a key.
type Backend struct {
	*layout.Layout

	src     *Source
	changed chan struct{}
	done    chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

// Open loads the foreground layout and starts the layout poller.
func Open(logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("backend", "win32")
	if err := procSendInput.Find(); err != nil {
		return nil, fmt.Errorf("win32: %w", err)
	}

	src := &Source{}
	l, err := layout.New(src, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("layout walked", "hkl", fmt.Sprintf("%#x", src.hkl), "altgr", src.altGr, "calls", src.calls)

	b := &Backend{
		Layout:  l,
		src:     src,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go b.poll(src.hkl)
	return b, nil
}

func (b *Backend) SendKey(code uint32, press bool) error {
	scan, flags := scanInput(code, press)
	if err := sendInputs([]input{keyInput(scan, flags)}); err != nil {
		return fmt.Errorf("win32: send input: %w", err)
	}
	return nil
}

// SendRune types r without any key.
func (b *Backend) SendRune(r rune, press bool) error {
	units, flags := unicodeInputs(r, press)
	in := make([]input, 0, len(units))
	for _, u := range units {
		in = append(in, keyInput(u, flags))
	}
	if err := sendInputs(in); err != nil {
		return fmt.Errorf("win32: send unicode input: %w", err)
	}
	return nil
}

func (b *Backend) CodeRange() (uint32, uint32) { return 1, 0xe0ff }

func (b *Backend) LayoutChanged() <-chan struct{} { return b.changed }

// poll watches the foreground HKL. It only compares handles and signals.
func (b *Backend) poll(last uintptr) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			hkl := foregroundLayout()
			if hkl == 0 || hkl == last {
				continue
			}
			last = hkl
			b.logger.Debug("foreground layout changed", "hkl", fmt.Sprintf("%#x", hkl))
			select {
			case b.changed <- struct{}{}:
			default:
			}
		case <-b.done:
			return
		}
	}
}

func (b *Backend) Close() error {
	b.once.Do(func() { close(b.done) })
	return nil
}
