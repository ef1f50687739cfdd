//go:build !linux && !windows

package platform

import "log/slog"

func open(*slog.Logger) (Backend, error) { return nil, ErrUnsupported }
