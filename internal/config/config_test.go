package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyrelay/internal/keys"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "config.json"), nil)
	require.NoError(t, err)
	return m
}

func TestDefaultsWithoutFile(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, *DefaultConfig(), cfg)
	mode, err := cfg.ServerMode()
	require.NoError(t, err)
	assert.Equal(t, keys.ModeTranslate, mode)
	assert.Equal(t, 10*time.Millisecond, cfg.Pace())
}

func TestLoadFile(t *testing.T) {
	m := newManager(t)
	require.NoError(t, os.WriteFile(m.Path(), []byte(`{"mode":"map","transport":"udp","pace-millis":-1}`), 0o644))
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, "map", cfg.Mode)
	assert.Equal(t, TransportUDP, cfg.Transport)
	assert.Negative(t, cfg.Pace())
	assert.Equal(t, ":7878", cfg.Listen, "unset keys keep defaults")
}

func TestEnvAndFlagOverrides(t *testing.T) {
	t.Setenv("KEYRELAY_LOG_LEVEL", "debug")
	m := newManager(t)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", ":7878", "")
	require.NoError(t, flags.Parse([]string{"--listen", "127.0.0.1:9000"}))
	require.NoError(t, m.BindFlags(flags))
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
}

func TestSaveRoundTrip(t *testing.T) {
	m := newManager(t)
	cfg := *DefaultConfig()
	cfg.Mode = "map"
	cfg.Peer = "10.0.0.2:7878"
	require.NoError(t, m.Set(cfg))
	require.NoError(t, m.Save())

	other, err := NewManager(m.Path(), nil)
	require.NoError(t, err)
	require.NoError(t, other.Load())
	assert.Equal(t, cfg, other.Get())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"mode", func(c *Config) { c.Mode = "mirror" }},
		{"transport", func(c *Config) { c.Transport = "carrier-pigeon" }},
		{"serial without port", func(c *Config) { c.Transport = TransportSerial }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
		{"stop hotkey", func(c *Config) { c.StopHotkey = "Ctrl+Hyper+Q" }},
		{"release hotkey", func(c *Config) { c.ReleaseHotkey = "Ctrl+" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestSetRejectsInvalid(t *testing.T) {
	m := newManager(t)
	called := false
	m.RegisterChangeCallback(func(*Config) { called = true })

	bad := *DefaultConfig()
	bad.Transport = "smoke"
	assert.ErrorIs(t, m.Set(bad), ErrInvalid)
	assert.False(t, called)

	good := *DefaultConfig()
	good.Mode = "map"
	require.NoError(t, m.Set(good))
	assert.True(t, called)
}

func TestWatchReloads(t *testing.T) {
	m := newManager(t)
	require.NoError(t, os.WriteFile(m.Path(), []byte(`{"mode":"translate"}`), 0o644))
	require.NoError(t, m.Load())

	changed := make(chan Config, 4)
	m.RegisterChangeCallback(func(c *Config) { changed <- *c })
	m.Watch()

	require.NoError(t, os.WriteFile(m.Path(), []byte(`{"mode":"map"}`), 0o644))
	require.Eventually(t, func() bool {
		select {
		case c := <-changed:
			return c.Mode == "map"
		default:
			return false
		}
	}, 3*time.Second, 20*time.Millisecond)
}
