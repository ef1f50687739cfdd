package keyrelay

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"keyrelay/internal/network"
)

var (
	discoverPort    int
	discoverSerial  bool
	discoverTimeout time.Duration
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find keyrelay hubs on the local network",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		if discoverSerial {
			ports, err := network.SerialPorts()
			if err != nil {
				return err
			}
			for _, p := range ports {
				fmt.Fprintln(out, p)
			}
			return nil
		}

		if ips, err := network.LocalIPs(); err == nil {
			logger.Info("scanning", "local", ips, "port", discoverPort)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), discoverTimeout)
		defer cancel()
		hubs, err := network.ScanLAN(ctx, discoverPort)
		if err != nil {
			return err
		}
		if len(hubs) == 0 {
			logger.Info("no hubs found", "port", discoverPort)
			return nil
		}
		for _, h := range hubs {
			fmt.Fprintf(out, "%s\t%s\t%s\t%d clients\n", h.Addr(), h.Status.Name, h.Status.Role, h.Status.Clients)
		}
		return nil
	},
}

func init() {
	f := discoverCmd.Flags()
	f.IntVar(&discoverPort, "port", network.DefaultPort, "hub port to probe")
	f.BoolVar(&discoverSerial, "serial", false, "list serial ports instead")
	f.DurationVar(&discoverTimeout, "timeout", 5*time.Second, "scan time limit")
	rootCmd.AddCommand(discoverCmd)
}
