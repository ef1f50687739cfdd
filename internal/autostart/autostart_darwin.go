package autostart

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

func plistPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("autostart: %w", err)
	}
	return filepath.Join(home, "Library", "LaunchAgents", label(name)+".plist"), nil
}

func enable(e Entry) error {
	path, err := plistPath(e.Name)
	if err != nil {
		return err
	}
	data, err := renderPlist(e)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("autostart: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func disable(name string) error {
	path, err := plistPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("autostart: %w", err)
	}
	return nil
}

func isEnabled(name string) bool {
	path, err := plistPath(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}
