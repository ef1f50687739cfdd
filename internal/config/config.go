// Package config loads, saves and watches the keyrelay configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"keyrelay/internal/hotkey"
	"keyrelay/internal/keys"
)

// EnvPrefix prefixes environment overrides, e.g. KEYRELAY_MODE=map.
const EnvPrefix = "KEYRELAY"

// Transports accepted in Config.Transport.
const (
	TransportTCP    = "tcp"
	TransportUDP    = "udp"
	TransportWS     = "ws"
	TransportSerial = "serial"
)

var ErrInvalid = errors.New("config: invalid configuration")

// Config is the application configuration. Keys are shared by the config
// file, environment variables and command line flags.
type Config struct {
	// Mode is the server mode: "map" or "translate".
	Mode string `mapstructure:"mode" json:"mode"`

	// Listen is the address a server accepts messages on.
	Listen string `mapstructure:"listen" json:"listen"`

	// Peer is the server address a sender delivers to, or the UDP sender
	// or hub a server subscribes to.
	Peer string `mapstructure:"peer" json:"peer,omitempty"`

	// Transport is one of tcp, udp, ws or serial.
	Transport string `mapstructure:"transport" json:"transport"`

	SerialPort string `mapstructure:"serial-port" json:"serial-port,omitempty"`
	SerialBaud int    `mapstructure:"serial-baud" json:"serial-baud"`

	// PaceMillis is the delay after each sent event. Negative disables it.
	PaceMillis int `mapstructure:"pace-millis" json:"pace-millis"`

	LogLevel  string `mapstructure:"log-level" json:"log-level"`
	LogFormat string `mapstructure:"log-format" json:"log-format"`

	// EventDir holds single-event files.
	EventDir string `mapstructure:"event-dir" json:"event-dir"`

	// Device is the evdev node used for capture on Linux.
	Device string `mapstructure:"device" json:"device,omitempty"`

	// Grab keeps captured keys from reaching local applications.
	Grab bool `mapstructure:"grab" json:"grab"`

	// AltGr treats the right Alt key as AltGr when capturing.
	AltGr bool `mapstructure:"altgr" json:"altgr"`

	// StopHotkey ends a capture, ReleaseHotkey asks the server to release
	// its keys. Empty disables them.
	StopHotkey    string `mapstructure:"stop-hotkey" json:"stop-hotkey"`
	ReleaseHotkey string `mapstructure:"release-hotkey" json:"release-hotkey"`
}

// DefaultConfig returns the defaults applied under every other source.
func DefaultConfig() *Config {
	return &Config{
		Mode:       keys.ModeTranslate.String(),
		Listen:     ":7878",
		Transport:  TransportTCP,
		SerialBaud: 115200,
		PaceMillis: 10,
		LogLevel:   "info",
		LogFormat:  "text",
		EventDir:   ".",

		StopHotkey:    "Ctrl+Alt+Escape",
		ReleaseHotkey: "Ctrl+Alt+End",
	}
}

// ServerMode parses Mode.
func (c *Config) ServerMode() (keys.ServerMode, error) {
	m, err := keys.ParseServerMode(c.Mode)
	if err != nil {
		return m, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return m, nil
}

// Pace returns PaceMillis as a duration.
func (c *Config) Pace() time.Duration { return time.Duration(c.PaceMillis) * time.Millisecond }

// Validate checks the fields that have a fixed set of values.
func (c *Config) Validate() error {
	if _, err := c.ServerMode(); err != nil {
		return err
	}
	switch c.Transport {
	case TransportTCP, TransportUDP, TransportWS:
	case TransportSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("%w: serial transport needs serial-port", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalid, c.Transport)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.LogFormat)
	}
	for _, hk := range []string{c.StopHotkey, c.ReleaseHotkey} {
		if strings.TrimSpace(hk) == "" {
			continue
		}
		if _, err := hotkey.Parse(hk); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	return nil
}

// Manager handles loading, saving and watching the configuration.
type Manager struct {
	mu        sync.Mutex
	v         *viper.Viper
	path      string
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a manager for path. An empty path selects
// config.json in the user config directory.
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if logger == nil {
		logger = slog.Default()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	return &Manager{
		v:      v,
		path:   path,
		config: DefaultConfig(),
		logger: logger.With("component", "config"),
	}, nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	return filepath.Join(dir, "keyrelay", "config.json"), nil
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("mode", c.Mode)
	v.SetDefault("listen", c.Listen)
	v.SetDefault("peer", c.Peer)
	v.SetDefault("transport", c.Transport)
	v.SetDefault("serial-port", c.SerialPort)
	v.SetDefault("serial-baud", c.SerialBaud)
	v.SetDefault("pace-millis", c.PaceMillis)
	v.SetDefault("log-level", c.LogLevel)
	v.SetDefault("log-format", c.LogFormat)
	v.SetDefault("event-dir", c.EventDir)
	v.SetDefault("device", c.Device)
	v.SetDefault("grab", c.Grab)
	v.SetDefault("altgr", c.AltGr)
	v.SetDefault("stop-hotkey", c.StopHotkey)
	v.SetDefault("release-hotkey", c.ReleaseHotkey)
}

// Path returns the config file path.
func (m *Manager) Path() string { return m.path }

// BindFlags lets flags override the file and environment. Flag names
// match the config keys.
func (m *Manager) BindFlags(flags *pflag.FlagSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v.BindPFlags(flags)
}

// Load reads the config file if it exists and applies overrides.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.v.ReadInConfig(); err != nil && !isNotFound(err) {
		return fmt.Errorf("config: read %s: %w", m.path, err)
	}
	cfg, err := m.decode()
	if err != nil {
		return err
	}
	m.config = cfg
	return nil
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

func (m *Manager) decode() (*Config, error) {
	cfg := DefaultConfig()
	if err := m.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the current configuration to the config file as JSON.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	m.logger.Info("saving", "path", m.path, "bytes", len(data))
	return os.WriteFile(m.path, data, 0o644)
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.config
}

// Set replaces the configuration and notifies callbacks.
func (m *Manager) Set(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = &cfg
	cbs := append([]func(*Config){}, m.callbacks...)
	m.mu.Unlock()
	for _, fn := range cbs {
		fn(&cfg)
	}
	return nil
}

// RegisterChangeCallback adds fn to the functions run after the
// configuration changes.
func (m *Manager) RegisterChangeCallback(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Watch reloads the configuration when the file changes. Invalid edits
// are logged and ignored.
func (m *Manager) Watch() {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		m.mu.Lock()
		cfg, err := m.decode()
		m.mu.Unlock()
		if err != nil {
			m.logger.Warn("ignoring config change", "file", e.Name, "error", err)
			return
		}
		m.logger.Info("config changed", "file", e.Name)
		if err := m.Set(*cfg); err != nil {
			m.logger.Warn("ignoring config change", "file", e.Name, "error", err)
		}
	})
	m.v.WatchConfig()
}
