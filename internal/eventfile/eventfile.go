// Package eventfile stores a single key event in a file named after the
// UTC date, such as 2026-10-17.kbd.
package eventfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"keyrelay/internal/keys"
	"keyrelay/internal/protocol"
)

// Ext is the event file extension.
const Ext = ".kbd"

var (
	ErrExists   = errors.New("eventfile: file already exists")
	ErrNotFound = errors.New("eventfile: no event file")
)

// Name returns the file name for the day of t in UTC.
func Name(t time.Time) string { return t.UTC().Format("2006-01-02") + Ext }

// Path joins dir and the file name for t.
func Path(dir string, t time.Time) string { return filepath.Join(dir, Name(t)) }

// Write stores evt in dir under the name for now. An existing file is
// never overwritten.
func Write(dir string, evt keys.KeyEvent, now time.Time) (string, error) {
	b, err := protocol.EncodeKeyEvent(evt)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("eventfile: %w", err)
	}
	path := Path(dir, now)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, path)
		}
		return "", fmt.Errorf("eventfile: %w", err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("eventfile: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("eventfile: close %s: %w", path, err)
	}
	return path, nil
}

// Read decodes the event stored at path.
func Read(path string) (keys.KeyEvent, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return keys.KeyEvent{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return keys.KeyEvent{}, fmt.Errorf("eventfile: %w", err)
	}
	evt, err := protocol.DecodeKeyEvent(b)
	if err != nil {
		return keys.KeyEvent{}, fmt.Errorf("eventfile: %s: %w", path, err)
	}
	return evt, nil
}

// Take reads the event at path and removes the file.
func Take(path string) (keys.KeyEvent, error) {
	evt, err := Read(path)
	if err != nil {
		return evt, err
	}
	if err := os.Remove(path); err != nil {
		return evt, fmt.Errorf("eventfile: %w", err)
	}
	return evt, nil
}
