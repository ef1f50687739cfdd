// Package tray shows a running server in the system tray.
package tray

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"keyrelay/internal/keys"
	"keyrelay/internal/server"
)

// MenuItem is a clickable tray entry.
type MenuItem struct {
	ID       int
	Title    string
	Callback func()
	item     *systray.MenuItem
}

// Tray manages the tray icon and its menu. Items are added before Run.
type Tray struct {
	title   string
	tooltip string
	items   []*MenuItem
	status  *systray.MenuItem
	quitCh  chan struct{}
	once    sync.Once
	mu      sync.Mutex
	pending string
}

func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}
}

// AddMenuItem adds an entry and returns its id.
func (t *Tray) AddMenuItem(title string, callback func()) int {
	id := len(t.items)
	t.items = append(t.items, &MenuItem{ID: id, Title: title, Callback: callback})
	return id
}

// AddSeparator adds a separator line.
func (t *Tray) AddSeparator() {
	t.items = append(t.items, nil)
}

// SetStatus updates the disabled status line at the top of the menu.
func (t *Tray) SetStatus(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = s
	if t.status != nil {
		t.status.SetTitle(s)
	}
}

// Run shows the tray and blocks until Stop or the OS quits it.
func (t *Tray) Run() {
	systray.Run(t.setupMenu, func() { t.once.Do(func() { close(t.quitCh) }) })
}

// Done is closed when the tray exits.
func (t *Tray) Done() <-chan struct{} { return t.quitCh }

func (t *Tray) setupMenu() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(Icon())

	t.mu.Lock()
	t.status = systray.AddMenuItem(t.pending, "")
	t.status.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	for _, mi := range t.items {
		if mi == nil {
			systray.AddSeparator()
			continue
		}
		mi.item = systray.AddMenuItem(mi.Title, "")
		if mi.Callback == nil {
			continue
		}
		go func(mi *MenuItem) {
			for {
				select {
				case <-mi.item.ClickedCh:
					mi.Callback()
				case <-t.quitCh:
					return
				}
			}
		}(mi)
	}
}

// Stop closes the tray.
func (t *Tray) Stop() {
	systray.Quit()
}

// Server is what the tray controls.
type Server interface {
	Mode() keys.ServerMode
	Stats() server.Stats
	ReleaseKeys() error
	Done() <-chan struct{}
}

// ForServer builds a tray for h. Quit runs quit, which should stop the
// server; the tray closes when the server is done.
func ForServer(h Server, quit func(), logger *slog.Logger) *Tray {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tray")

	t := New("keyrelay", fmt.Sprintf("keyrelay (%s mode)", h.Mode()))
	t.SetStatus(statusLine(h.Mode(), h.Stats()))
	t.AddMenuItem("Release keys", func() {
		if err := h.ReleaseKeys(); err != nil {
			logger.Warn("release keys failed", "error", err)
		}
	})
	t.AddSeparator()
	t.AddMenuItem("Quit", func() {
		logger.Info("quit requested")
		quit()
	})

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.SetStatus(statusLine(h.Mode(), h.Stats()))
			case <-h.Done():
				t.Stop()
				return
			case <-t.quitCh:
				return
			}
		}
	}()
	return t
}

func statusLine(mode keys.ServerMode, s server.Stats) string {
	line := fmt.Sprintf("Mode: %s · %d events", mode, s.Processed)
	if s.Failed > 0 || s.Dropped > 0 {
		line += fmt.Sprintf(" (%d failed, %d dropped)", s.Failed, s.Dropped)
	}
	return line
}
