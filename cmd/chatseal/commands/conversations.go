package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chatseal/internal/app"
	"chatseal/internal/domain"
)

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <peer>...",
		Short: "Start a conversation and seal its key for every participant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *app.Session) error {
				peers := make([]domain.UserID, len(args))
				for i, a := range args {
					peers[i] = domain.UserID(a)
				}
				conv, _, err := s.Keys.CreateConversation(ctx, peers)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), conv.ID)
				return nil
			})
		},
	}
}

func conversationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List your conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			convs, err := wire.Relay.ListConversations(cmd.Context(), user)
			if err != nil {
				return err
			}
			for _, c := range convs {
				names := make([]string, len(c.Participants))
				for i, p := range c.Participants {
					names[i] = string(p)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
					c.ID, c.CreatedAt.Local().Format(time.DateTime), strings.Join(names, ", "))
			}
			return nil
		},
	}
}

func setupKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup-key <conversation>",
		Short: "Provision a key for a conversation that has none for you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *app.Session) error {
				id := domain.ConversationID(args[0])
				conv, err := wire.Relay.FetchConversation(ctx, id)
				if err != nil {
					return err
				}
				if _, err := s.Keys.SetupConversationKey(ctx, id, conv.Participants); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Key ready for %s\n", id)
				return nil
			})
		},
	}
}
