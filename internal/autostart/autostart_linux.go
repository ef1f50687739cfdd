package autostart

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// configDir is the XDG config home; tests replace it.
var configDir = os.UserConfigDir

func desktopPath(name string) (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", fmt.Errorf("autostart: %w", err)
	}
	return filepath.Join(dir, "autostart", name+".desktop"), nil
}

func enable(e Entry) error {
	path, err := desktopPath(e.Name)
	if err != nil {
		return err
	}
	data, err := renderDesktop(e)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("autostart: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func disable(name string) error {
	path, err := desktopPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("autostart: %w", err)
	}
	return nil
}

func isEnabled(name string) bool {
	path, err := desktopPath(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
