package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"chatseal/internal/app"
	"chatseal/internal/domain"
)

// send <conversation> <text>: encrypt with the conversation key.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation> <text>",
		Short: "Encrypt a message with the conversation key and send it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *app.Session) error {
				msg, err := s.Messages.SendMessage(ctx, domain.ConversationID(args[0]), args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", msg.ID)
				return nil
			})
		},
	}
}

// send-direct <conversation> <peer> <text>: encrypt for one participant.
func sendDirectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-direct <conversation> <peer> <text>",
		Short: "Encrypt a message for a single participant and send it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *app.Session) error {
				msg, err := s.Messages.SendDirect(ctx,
					domain.ConversationID(args[0]), domain.UserID(args[1]), args[2])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", msg.ID)
				return nil
			})
		},
	}
}
