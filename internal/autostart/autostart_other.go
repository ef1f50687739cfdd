//go:build !linux && !darwin && !windows

package autostart

func enable(Entry) error { return ErrUnsupported }

func disable(string) error { return ErrUnsupported }

func isEnabled(string) bool { return false }
