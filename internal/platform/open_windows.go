package platform

import (
	"log/slog"

	"keyrelay/internal/platform/win32"
)

func open(logger *slog.Logger) (Backend, error) {
	b, err := win32.Open(logger)
	if err != nil {
		return nil, err
	}
	return b, nil
}
