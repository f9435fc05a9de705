package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"chatseal/internal/app"
	"chatseal/internal/domain"
)

func printMessage(w io.Writer, m domain.Message) {
	to := ""
	if m.Scheme == domain.SchemePairwise {
		to = " -> " + string(m.RecipientID)
	}
	fmt.Fprintf(w, "[%s] %s%s: %s\n", m.CreatedAt.Local().Format(time.DateTime), m.SenderID, to, m.DecryptedText)
}

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <conversation>",
		Short: "Load and decrypt a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *app.Session) error {
				msgs, err := s.Messages.LoadConversation(ctx, domain.ConversationID(args[0]))
				if err != nil {
					return err
				}
				for _, m := range msgs {
					printMessage(cmd.OutOrStdout(), m)
				}
				return nil
			})
		},
	}
}

// watch <conversation>: stream new messages until interrupted.
func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <conversation>",
		Short: "Print new messages as they arrive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.MessageStorage != app.StorageRemote {
				return errors.New("watch needs message_storage: remote")
			}
			return withSession(cmd, func(ctx context.Context, s *app.Session) error {
				id := domain.ConversationID(args[0])
				return wire.Relay.Subscribe(ctx, id, func(m domain.Message) {
					for _, d := range s.Messages.DecryptAll(ctx, []domain.Message{m}) {
						printMessage(cmd.OutOrStdout(), d)
					}
				})
			})
		},
	}
}
