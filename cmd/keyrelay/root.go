// Package keyrelay is the keyrelay command line.
package keyrelay

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"keyrelay/internal/config"
	"keyrelay/internal/logging"
)

// Version is set at build time with -ldflags "-X keyrelay/cmd/keyrelay.Version=...".
var Version = "dev"

var (
	cfgFile string
	manager *config.Manager
	logger  = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "keyrelay",
	Short: "Capture, send and inject keyboard events",
	Long: `keyrelay moves keyboard events between machines. A server injects the
events it receives into the local session, either by physical key (map mode)
or by the character the key produces on the sender (translate mode).`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

// Execute runs the command line. It is called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	d := config.DefaultConfig()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/keyrelay/config.json)")
	pf.String("mode", d.Mode, "server mode: map or translate")
	pf.String("listen", d.Listen, "address to listen on")
	pf.String("peer", d.Peer, "address of the other side")
	pf.String("transport", d.Transport, "tcp, udp, ws or serial")
	pf.String("serial-port", d.SerialPort, "serial device for the serial transport")
	pf.Int("serial-baud", d.SerialBaud, "serial line speed")
	pf.Int("pace-millis", d.PaceMillis, "pause after each injected event, negative disables it")
	pf.String("log-level", d.LogLevel, "debug, info, warn or error")
	pf.String("log-format", d.LogFormat, "text or json")
	pf.String("event-dir", d.EventDir, "directory of single-event files")
	pf.String("device", d.Device, "evdev device to capture from (Linux)")
	pf.Bool("grab", d.Grab, "keep captured keys from local applications")
	pf.Bool("altgr", d.AltGr, "treat the right Alt key as AltGr when capturing")
	pf.String("stop-hotkey", d.StopHotkey, "hotkey that stops capturing")
	pf.String("release-hotkey", d.ReleaseHotkey, "hotkey that releases the server's keys while capturing")

	rootCmd.AddCommand(versionCmd)
}

// setup loads the configuration with flags taking priority over the
// environment and the config file, then installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	m, err := config.NewManager(cfgFile, logger)
	if err != nil {
		return err
	}
	if err := m.BindFlags(rootCmd.PersistentFlags()); err != nil {
		return err
	}
	if err := m.Load(); err != nil {
		return err
	}
	cfg := m.Get()
	l, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	slog.SetDefault(l)
	logger = l
	manager = m
	cmd.SetContext(logging.With(cmd.Context(), slog.String("command", cmd.Name())))
	logger.DebugContext(cmd.Context(), "configuration loaded", "path", m.Path(), "transport", cfg.Transport, "mode", cfg.Mode)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "keyrelay", Version)
	},
}
