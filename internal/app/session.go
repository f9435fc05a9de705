package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"chatseal/internal/crypto"
	"chatseal/internal/domain"
	"chatseal/internal/services/convkey"
	identitysvc "chatseal/internal/services/identity"
	messagesvc "chatseal/internal/services/message"
)

// Session is one logged-in user's scope. The identity private key is held
// in an enclave for the life of the session.
type Session struct {
	User     domain.UserID
	Keyring  *crypto.Keyring
	Peers    *identitysvc.PeerResolver
	Keys     *convkey.Manager
	Messages *messagesvc.Service

	wire *Wire
	log  logrus.FieldLogger
}

// Login runs identity setup for user and opens a session for them.
func Login(ctx context.Context, w *Wire, user domain.UserID) (*Session, error) {
	if user == "" {
		return nil, fmt.Errorf("%w: no user id", domain.ErrNoIdentity)
	}
	log := w.Log.WithField("user_id", user)

	pair, err := w.Identity.EnsureIdentity(ctx, user)
	if err != nil {
		return nil, err
	}
	priv, err := crypto.DecodePrivate(pair.PrivateKey)
	if err != nil {
		return nil, err
	}
	keyring, err := crypto.NewKeyring(user, &priv)
	if err != nil {
		return nil, err
	}

	peers := identitysvc.NewPeerResolver(w.Relay, w.PeerKeys, w.Log)
	keys := convkey.NewManager(keyring, w.Relay, peers, w.Log)
	msgs := messagesvc.New(keyring, keys, peers, w.SentText, w.Messages, w.Log)
	msgs.Sentinel = w.Config.SentinelText

	log.Debug("app: session opened")
	return &Session{
		User:     user,
		Keyring:  keyring,
		Peers:    peers,
		Keys:     keys,
		Messages: msgs,
		wire:     w,
		log:      log,
	}, nil
}

// Close ends the session in memory. Local stores are untouched.
func (s *Session) Close() {
	s.Keyring.Destroy()
	s.Keys.Forget()
}

// Logout ends the session and removes the user's secrets from this device:
// cached conversation keys, peer keys, sent plaintext and the vault record.
// Without an exported backup the identity cannot be recovered afterwards.
func (s *Session) Logout(ctx context.Context) error {
	s.Close()
	err := errors.Join(
		s.wire.PeerKeys.Clear(),
		s.wire.SentText.Clear(),
		s.wire.Vault.Delete(s.User),
	)
	if err != nil {
		return fmt.Errorf("logout %s: %w", s.User, err)
	}
	s.log.Info("app: logged out")
	return nil
}
