package keyrelay

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"keyrelay/internal/capture"
	"keyrelay/internal/hotkey"
	"keyrelay/internal/keys"
	"keyrelay/internal/network"
	"keyrelay/internal/protocol"
	"keyrelay/internal/server"
)

var captureLocal bool

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Forward the local keyboard to a server",
	Long: `Capture reads the local keyboard and sends every key event over the
configured transport. The stop hotkey (Ctrl+Alt+Escape by default) ends
capturing, after which the server is asked to release the keys it holds.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfg := manager.Get()
		var out network.Sender
		if captureLocal {
			// the server outlives ctx so the final release reaches it
			h, err := spawnServer(context.WithoutCancel(ctx))
			if err != nil {
				return err
			}
			out = handleSender{h}
		} else {
			var err error
			if out, err = newSender(ctx, cfg); err != nil {
				return err
			}
		}
		defer out.Close()

		hk := hotkey.NewManager(logger)
		if _, err := hk.Register(cfg.StopHotkey, cancel); err != nil {
			return err
		}
		if _, err := hk.Register(cfg.ReleaseHotkey, func() {
			if err := sendRelease(out); err != nil {
				logger.Warn("release not sent", "error", err)
			}
		}); err != nil {
			return err
		}

		src, err := capture.Open(capture.Options{
			Device:  cfg.Device,
			Grab:    cfg.Grab,
			AltGr:   cfg.AltGr,
			Hotkeys: hk,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer src.Close()

		logger.InfoContext(ctx, "capturing", "transport", cfg.Transport, "local", captureLocal, "grab", cfg.Grab)
		return forward(ctx, src.Events(), out)
	},
}

func init() {
	captureCmd.Flags().BoolVar(&captureLocal, "local", false, "inject into this machine instead of sending")
	rootCmd.AddCommand(captureCmd)
}

// forward sends events until ctx is done or the source closes, then asks
// the receiver to release what it holds.
func forward(ctx context.Context, events <-chan keys.KeyEvent, out network.Sender) error {
	var sent, failed int
	defer func() {
		logger.InfoContext(ctx, "capture stopped", "sent", sent, "failed", failed)
	}()

	release := func() error {
		err := sendRelease(out)
		linger(out)
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return release()
		case evt, ok := <-events:
			if !ok {
				return release()
			}
			b, err := protocol.Encode(protocol.KeyEventMessage(evt))
			if err != nil {
				return err
			}
			if err := out.Send(b); err != nil {
				if errors.Is(err, network.ErrClosed) || errors.Is(err, server.ErrClosed) {
					return err
				}
				failed++
				logger.WarnContext(ctx, "event not sent", "event", evt.String(), "error", err)
				continue
			}
			sent++
			logger.DebugContext(ctx, "forwarded", "event", evt.String())
		}
	}
}

func sendRelease(out network.Sender) error {
	b, err := protocol.Encode(protocol.ReleaseKeysMessage())
	if err != nil {
		return err
	}
	return out.Send(b)
}

// handleSender feeds a local server.
type handleSender struct{ h *server.Handle }

func (s handleSender) Send(b []byte) error { return s.h.SendBytes(b) }
func (s handleSender) Close() error        { return s.h.Close() }
