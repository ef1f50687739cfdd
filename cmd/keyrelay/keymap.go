package keyrelay

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"keyrelay/internal/layout"
	"keyrelay/internal/platform"
)

var keymapGroup int

var keymapCmd = &cobra.Command{
	Use:   "keymap",
	Short: "Print the keyboard layout the server would inject with",
	RunE: func(cmd *cobra.Command, _ []string) error {
		be, err := platform.Open(logger)
		if err != nil {
			return err
		}
		defer be.Close()

		src, ok := be.(interface{ Keymap() *layout.Keymap })
		if !ok {
			return errors.New("backend does not expose its keymap")
		}
		return printKeymap(cmd.OutOrStdout(), src.Keymap(), keymapGroup)
	},
}

func init() {
	keymapCmd.Flags().IntVar(&keymapGroup, "group", -1, "layout group to print, -1 for all")
	rootCmd.AddCommand(keymapCmd)
}

func printKeymap(w io.Writer, km *layout.Keymap, only int) error {
	if only >= km.Groups() {
		return fmt.Errorf("keymap %q has %d groups", km.Name, km.Groups())
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "# %s, codes %d..%d\n", km.Name, km.MinCode, km.MaxCode)
	for g := 0; g < km.Groups(); g++ {
		if only >= 0 && g != only {
			continue
		}
		fmt.Fprintf(tw, "\ngroup %d\n", g+1)
		fmt.Fprintln(tw, "CODE\tKEY\tMODIFIERS\tKEYSYM")
		for _, e := range km.Entries(g) {
			key := "-"
			if p, ok := km.Physical(e.Stroke.Code); ok {
				key = p.String()
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Stroke.Code, key, e.Stroke.Modifiers, e.Keysym)
		}
	}
	return tw.Flush()
}
