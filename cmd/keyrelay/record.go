package keyrelay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"keyrelay/internal/eventfile"
	"keyrelay/internal/keys"
	"keyrelay/internal/protocol"
)

var recordOpts eventFlags

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Store one key event in today's event file",
	Long: `Record writes a key event to <event-dir>/<YYYY-MM-DD>.kbd. A day holds a
single event; replay consumes it.`,
	Example: `  keyrelay record --char c --mods ctrl --action press`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		evts, err := recordOpts.events()
		if err != nil {
			return err
		}
		if len(evts) != 1 {
			return errors.New("record stores one event, use --action press or release")
		}
		path, err := eventfile.Write(manager.Get().EventDir, evts[0], time.Now())
		if err != nil {
			return err
		}
		logger.InfoContext(cmd.Context(), "event recorded", "path", path, "event", evts[0].String())
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var (
	replayKeep  bool
	replayLocal bool
)

var replayCmd = &cobra.Command{
	Use:   "replay [file]",
	Short: "Send a recorded event, by default today's",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := manager.Get()
		path := eventfile.Path(cfg.EventDir, time.Now())
		if len(args) == 1 {
			path = args[0]
		}

		read := eventfile.Take
		if replayKeep {
			read = eventfile.Read
		}
		evt, err := read(path)
		if err != nil {
			return err
		}
		logger.Info("replaying", "path", path, "event", evt.String(), "local", replayLocal)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if replayLocal {
			return injectLocal(ctx, evt)
		}

		s, err := newSender(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := awaitReceivers(ctx, s, 10*time.Second); err != nil {
			return err
		}
		if err := sendMessages(ctx, s, []protocol.Message{protocol.KeyEventMessage(evt)}, 0); err != nil {
			return err
		}
		linger(s)
		return nil
	},
}

func init() {
	recordOpts.register(recordCmd.Flags(), actionPress)

	replayCmd.Flags().BoolVar(&replayKeep, "keep", false, "leave the event file in place")
	replayCmd.Flags().BoolVar(&replayLocal, "local", false, "inject on this machine instead of sending")
	rootCmd.AddCommand(recordCmd, replayCmd)
}

// injectLocal runs evt through an in-process server. Keys still held
// afterwards are released when it closes.
func injectLocal(ctx context.Context, evts ...keys.KeyEvent) error {
	h, err := spawnServer(ctx)
	if err != nil {
		return err
	}
	defer h.Close()
	for _, e := range evts {
		if err := h.Send(e); err != nil {
			return err
		}
	}
	return nil
}
