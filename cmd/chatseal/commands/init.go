package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"chatseal/internal/app"
	"chatseal/internal/crypto"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or load your identity and publish its public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *app.Session) error {
				// Remember who we are and where the relay is.
				if err := cfg.Save(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Identity ready for %s.\nFingerprint: %s\n",
					s.User, crypto.Fingerprint(s.Keyring.PublicKey()))
				return nil
			})
		},
	}
}
