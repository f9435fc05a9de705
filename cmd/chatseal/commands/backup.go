package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"chatseal/internal/app"
	"chatseal/internal/crypto"
	"chatseal/internal/domain"
	"chatseal/internal/store"
)

func exportKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-key <file>",
		Short: "Write an UNENCRYPTED backup of your private key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := currentUser()
			if err != nil {
				return err
			}
			doc, err := wire.Vault.ExportBackup(user)
			if err != nil {
				return err
			}
			if err := store.WriteBackupFile(args[0], doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "WARNING: %s\n", domain.BackupWarning)
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", args[0])
			return nil
		},
	}
}

func importKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-key <file>",
		Short: "Restore your private key from a backup and republish it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := store.ReadBackupFile(args[0])
			if err != nil {
				return err
			}
			var peek domain.BackupDocument
			if json.Unmarshal(doc, &peek) == nil && cfg.UserID != "" && peek.UserID != cfg.UserID {
				return fmt.Errorf("backup belongs to %s, not %s", peek.UserID, cfg.UserID)
			}
			user, err := wire.Vault.ImportBackup(doc)
			if err != nil {
				return err
			}
			cfg.UserID = user
			return withSession(cmd, func(ctx context.Context, s *app.Session) error {
				if err := cfg.Save(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored identity for %s.\nFingerprint: %s\n",
					s.User, crypto.Fingerprint(s.Keyring.PublicKey()))
				return nil
			})
		},
	}
}
