package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"chatseal/internal/crypto"
	"chatseal/internal/domain"
)

// Service ties the local private key vault to the public profile directory.
type Service struct {
	vault    domain.PrivateKeyVault
	profiles domain.ProfileDirectory
	log      logrus.FieldLogger
}

// New returns an identity service. A nil logger uses the standard logger.
func New(vault domain.PrivateKeyVault, profiles domain.ProfileDirectory, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{vault: vault, profiles: profiles, log: log}
}

// EnsureIdentity makes sure userID has a private key on this device and the
// matching public key in their profile. It returns the key pair.
//
// Steps:
//  1. Load the private key from the vault. Vault failures are returned as is,
//     so a broken vault never silently mints a new identity.
//  2. Fetch the published profile.
//  3. With a local key: republish its public key if the profile lacks it or
//     shows a different one.
//  4. Without one: generate a pair, save it, then publish the public key.
//     A different key already published is overwritten and logged, since
//     conversation keys sealed to it become unreadable.
func (s *Service) EnsureIdentity(ctx context.Context, userID domain.UserID) (domain.IdentityKeyPair, error) {
	log := s.log.WithField("user_id", userID)

	stored, ok, err := s.vault.Get(userID)
	if err != nil {
		return domain.IdentityKeyPair{}, fmt.Errorf("load identity for %s: %w", userID, err)
	}

	profile, err := s.profiles.FetchProfile(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.IdentityKeyPair{}, fmt.Errorf("fetch profile %s: %w", userID, err)
	}

	if ok {
		pair, err := PairFromPrivate(stored)
		if err != nil {
			return domain.IdentityKeyPair{}, fmt.Errorf("stored identity for %s: %w", userID, err)
		}
		if profile.PublicKey != pair.PublicKey {
			log.Info("identity: publishing public key from local vault")
			if err := s.profiles.PublishPublicKey(ctx, userID, pair.PublicKey); err != nil {
				return domain.IdentityKeyPair{}, fmt.Errorf("publish key for %s: %w", userID, err)
			}
		}
		return pair, nil
	}

	if profile.PublicKey != "" {
		log.Warn("identity: no local private key; replacing published key, earlier conversations will not decrypt")
	}
	pair, err := GenerateKeyPair()
	if err != nil {
		return domain.IdentityKeyPair{}, err
	}
	if err := s.vault.Save(userID, pair.PrivateKey); err != nil {
		return domain.IdentityKeyPair{}, fmt.Errorf("save identity for %s: %w", userID, err)
	}
	if err := s.profiles.PublishPublicKey(ctx, userID, pair.PublicKey); err != nil {
		return domain.IdentityKeyPair{}, fmt.Errorf("publish key for %s: %w", userID, err)
	}
	log.Info("identity: generated new key pair")
	return pair, nil
}

// Fingerprint returns a short fingerprint of userID's published key.
func (s *Service) Fingerprint(ctx context.Context, userID domain.UserID) (domain.Fingerprint, error) {
	profile, err := s.profiles.FetchProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	pub, err := crypto.DecodePublic(profile.PublicKey)
	if err != nil {
		return "", fmt.Errorf("%w: %s has no usable public key", domain.ErrKeyNotProvisioned, userID)
	}
	return crypto.Fingerprint(pub), nil
}
