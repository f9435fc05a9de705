package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"chatseal/internal/app"
)

func logoutCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove your private key and cached secrets from this device",
		Long: "Remove your private key, cached peer keys and sent message text from this device.\n" +
			"Export a backup first (export-key) or earlier conversations become unreadable.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("logout deletes your private key from this device; rerun with --yes")
			}
			return withSession(cmd, func(ctx context.Context, s *app.Session) error {
				if err := s.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s\n", s.User)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting the private key")
	return cmd
}
