package keyrelay

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"keyrelay/internal/autostart"
)

var autostartName string

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Manage starting keyrelay at login",
}

var autostartEnableCmd = &cobra.Command{
	Use:   "enable [command and flags]",
	Short: "Run a keyrelay command at login, by default the tray",
	Example: `  keyrelay autostart enable
  keyrelay autostart enable --name keyrelay-serve -- serve --transport udp --peer 10.0.0.2:7878`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"tray"}
		}
		if cfgFile != "" {
			abs, err := filepath.Abs(cfgFile)
			if err != nil {
				return err
			}
			args = append(args, "--config", abs)
		}
		if err := autostart.Enable(autostart.Entry{Name: autostartName, Args: args}); err != nil {
			return err
		}
		logger.Info("autostart enabled", "name", autostartName, "args", args)
		return nil
	},
}

var autostartDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop running keyrelay at login",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := autostart.Disable(autostartName); err != nil {
			return err
		}
		logger.Info("autostart disabled", "name", autostartName)
		return nil
	},
}

var autostartStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether keyrelay runs at login",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		state := "disabled"
		if autostart.IsEnabled(autostartName) {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", autostartName, state)
	},
}

func init() {
	autostartCmd.PersistentFlags().StringVar(&autostartName, "name", "keyrelay", "autostart entry name")
	autostartCmd.AddCommand(autostartEnableCmd, autostartDisableCmd, autostartStatusCmd)
	rootCmd.AddCommand(autostartCmd)
}
