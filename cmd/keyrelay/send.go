package keyrelay

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"keyrelay/internal/network"
	"keyrelay/internal/protocol"
)

var sendOpts sendFlags

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send key messages to a server",
	Example: `  keyrelay send --peer host:7878 --text "hello"
  keyrelay send --peer host:7878 --char c --mods ctrl
  keyrelay send --peer host:7878 --key F5
  keyrelay send --peer host:7878 --release-keys --exit`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sendOpts.hasKeycode = cmd.Flags().Changed("keycode")
		msgs, err := sendOpts.messages()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := newSender(ctx, manager.Get())
		if err != nil {
			return err
		}
		defer s.Close()
		if err := awaitReceivers(ctx, s, 10*time.Second); err != nil {
			return err
		}
		if err := sendMessages(ctx, s, msgs, manager.Get().Pace()); err != nil {
			return err
		}
		linger(s)
		return nil
	},
}

func init() {
	f := sendCmd.Flags()
	sendOpts.event.register(f, actionTap)
	f.StringVar(&sendOpts.text, "text", "", "text to type")
	f.Uint32Var(&sendOpts.keycode, "keycode", 0, "native keycode of the server's OS")
	f.BoolVar(&sendOpts.releaseKeys, "release-keys", false, "ask the server to release every key it holds")
	f.BoolVar(&sendOpts.exit, "exit", false, "stop the server")
	rootCmd.AddCommand(sendCmd)
}

// sendMessages encodes and sends msgs, pausing between them.
func sendMessages(ctx context.Context, s network.Sender, msgs []protocol.Message, pace time.Duration) error {
	for i, m := range msgs {
		b, err := protocol.Encode(m)
		if err != nil {
			return err
		}
		if err := s.Send(b); err != nil {
			return fmt.Errorf("send %s: %w", m, err)
		}
		logger.DebugContext(ctx, "sent", "message", m.String())
		if pace > 0 && i < len(msgs)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pace):
			}
		}
	}
	return nil
}
