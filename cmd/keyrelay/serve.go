package keyrelay

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"keyrelay/internal/config"
	"keyrelay/internal/osutils"
	"keyrelay/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Inject the key messages received over the configured transport",
	Long: `Serve starts the injection server and feeds it every message received
over the configured transport. An exit message stops it; keys it still holds
are released on the way out.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if serveFirewall {
			if err := openFirewall(manager.Get()); err != nil {
				logger.Warn("firewall rule not applied", "error", err)
			}
		}

		h, err := spawnServer(ctx)
		if err != nil {
			return err
		}
		defer h.Close()
		return runServer(ctx, h)
	},
}

var serveFirewall bool

func init() {
	serveCmd.Flags().BoolVar(&serveFirewall, "open-firewall", false, "allow the listen port through the Windows firewall")
	rootCmd.AddCommand(serveCmd)
}

// openFirewall allows inbound connections on the listen port. Serial, UDP
// and websocket clients dial out and need no rule.
func openFirewall(cfg config.Config) error {
	switch {
	case cfg.Transport == config.TransportSerial,
		cfg.Transport == config.TransportUDP,
		cfg.Transport == config.TransportWS && cfg.Peer != "":
		return nil
	}
	port, err := listenPort(cfg.Listen)
	if err != nil {
		return err
	}
	return osutils.EnsureFirewallRule(osutils.FirewallRule{Name: "keyrelay", Port: port, Protocol: "TCP"}, logger)
}

func spawnServer(ctx context.Context) (*server.Handle, error) {
	cfg := manager.Get()
	mode, err := cfg.ServerMode()
	if err != nil {
		return nil, err
	}
	return server.Spawn(ctx, server.Options{
		Mode:   mode,
		Pace:   cfg.Pace(),
		Logger: logger,
	})
}

// runServer serves the transport into h until ctx is done or the server
// exits.
func runServer(ctx context.Context, h *server.Handle) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-h.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg := manager.Get()
	watchConfig(cfg)
	logger.InfoContext(ctx, "serving", "transport", cfg.Transport, "listen", cfg.Listen, "peer", cfg.Peer, "mode", h.Mode())
	err := serveTransport(ctx, cfg, h)

	s := h.Stats()
	logger.InfoContext(ctx, "serve finished", "processed", s.Processed, "failed", s.Failed, "dropped", s.Dropped)
	return err
}

// watchConfig logs edits of the config file. The running server keeps the
// settings it started with.
func watchConfig(started config.Config) {
	if _, err := os.Stat(manager.Path()); err != nil {
		return
	}
	manager.RegisterChangeCallback(func(c *config.Config) {
		if c.Mode != started.Mode || c.Transport != started.Transport ||
			c.Listen != started.Listen || c.Peer != started.Peer {
			logger.Warn("config file changed, restart to apply", "path", manager.Path())
		}
	})
	manager.Watch()
}
