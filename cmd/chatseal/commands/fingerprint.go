package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatseal/internal/domain"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint [user]",
		Short: "Print the fingerprint of a published key (default: yours)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if len(args) == 1 {
				user, err = domain.UserID(args[0]), nil
			}
			if err != nil {
				return err
			}
			fp, err := wire.Identity.Fingerprint(cmd.Context(), user)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", user, fp)
			return nil
		},
	}
}
