package platform

import (
	"log/slog"

	"keyrelay/internal/platform/x11"
)

func open(logger *slog.Logger) (Backend, error) {
	b, err := x11.Open("", logger)
	if err != nil {
		return nil, err
	}
	return b, nil
}
