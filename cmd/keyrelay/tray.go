package keyrelay

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"keyrelay/internal/tray"
)

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Run the server with a system tray icon",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		h, err := spawnServer(ctx)
		if err != nil {
			return err
		}
		defer h.Close()

		t := tray.ForServer(h, cancel, logger)
		errc := make(chan error, 1)
		go func() {
			errc <- runServer(ctx, h)
			t.Stop()
		}()

		// the tray owns the main thread until it quits
		t.Run()
		cancel()
		return <-errc
	},
}

func init() {
	rootCmd.AddCommand(trayCmd)
}
