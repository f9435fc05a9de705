package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"chatseal/internal/app"
	"chatseal/internal/domain"
)

const passphraseEnv = "CHATSEAL_PASSPHRASE"

var (
	home       string
	passphrase string
	relayURL   string
	userID     string
	verbose    bool

	cfg  app.Config
	wire *app.Wire
	log  = logrus.New()
)

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	return Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

// Run executes the CLI with args and closes the local store afterwards,
// including when the command failed.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if wire != nil {
		err = errors.Join(err, wire.Close())
		wire = nil
	}
	return err
}

// NewRootCmd builds the command tree. Flag state is reset on every call.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "chatseal",
		Short:        "End-to-end encrypted conversations over an untrusted relay",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipsStore(cmd) {
				return nil
			}
			if home == "" {
				home = app.DefaultHome()
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			var err error
			if cfg, err = app.LoadConfig(home); err != nil {
				return err
			}
			if relayURL != "" {
				cfg.RelayURL = relayURL
			}
			if userID != "" {
				cfg.UserID = domain.UserID(userID)
			}

			log.SetOutput(cmd.ErrOrStderr())
			if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
				log.SetLevel(lvl)
			}
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			if passphrase == "" {
				passphrase = os.Getenv(passphraseEnv)
			}
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p or $%s)", passphraseEnv)
			}
			wire, err = app.NewWire(cfg, passphrase, log)
			return err
		},
	}

	home, passphrase, relayURL, userID, verbose = "", "", "", "", false
	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default ~/.chatseal)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting local keys")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVarP(&userID, "user", "u", "", "your user id (default from config)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		exportKeyCmd(),
		importKeyCmd(),
		createCmd(),
		conversationsCmd(),
		setupKeyCmd(),
		sendCmd(),
		sendDirectCmd(),
		readCmd(),
		watchCmd(),
		logoutCmd(),
	)
	return root
}

// skipsStore reports commands that never touch the local store.
func skipsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "help" || c.Name() == "completion" {
			return true
		}
	}
	return false
}

func currentUser() (domain.UserID, error) {
	if cfg.UserID == "" {
		return "", fmt.Errorf("%w: pass --user or set user_id in %s", domain.ErrNoIdentity, app.ConfigFile)
	}
	return cfg.UserID, nil
}

// login opens a session for the current user. The caller closes it.
func login(ctx context.Context) (*app.Session, error) {
	user, err := currentUser()
	if err != nil {
		return nil, err
	}
	return app.Login(ctx, wire, user)
}

// withSession runs fn inside a session for the current user.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *app.Session) error) error {
	s, err := login(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(cmd.Context(), s)
}
