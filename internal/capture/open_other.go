//go:build !linux && !windows

package capture

func open(Options) (Source, error) { return nil, ErrUnsupported }
