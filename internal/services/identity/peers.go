package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"chatseal/internal/crypto"
	"chatseal/internal/domain"
)

// PeerResolver looks up participants' public keys, cache first.
type PeerResolver struct {
	profiles domain.ProfileDirectory
	cache    domain.PeerKeyCache
	log      logrus.FieldLogger
}

// NewPeerResolver returns a resolver over the profile directory and cache.
func NewPeerResolver(
	profiles domain.ProfileDirectory,
	cache domain.PeerKeyCache,
	log logrus.FieldLogger,
) *PeerResolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PeerResolver{profiles: profiles, cache: cache, log: log}
}

// PeerPublicKey returns peerID's public key for the conversation. A peer
// with no usable published key is domain.ErrKeyNotProvisioned.
func (r *PeerResolver) PeerPublicKey(
	ctx context.Context,
	conversationID domain.ConversationID,
	peerID domain.UserID,
) (domain.X25519Public, error) {
	if cached, ok := r.cache.PeerPublicKey(conversationID, peerID); ok {
		if pub, err := crypto.DecodePublic(cached); err == nil {
			return pub, nil
		}
		r.log.WithField("peer_id", peerID).Debug("identity: ignoring malformed cached key")
	}

	profile, err := r.profiles.FetchProfile(ctx, peerID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.X25519Public{}, fmt.Errorf("%w: %s has no profile", domain.ErrKeyNotProvisioned, peerID)
	}
	if err != nil {
		return domain.X25519Public{}, fmt.Errorf("fetch profile %s: %w", peerID, err)
	}
	pub, err := crypto.DecodePublic(profile.PublicKey)
	if err != nil {
		return domain.X25519Public{}, fmt.Errorf("%w: %s has not published a valid key", domain.ErrKeyNotProvisioned, peerID)
	}
	r.cache.SavePeerPublicKey(conversationID, peerID, profile.PublicKey)
	return pub, nil
}

// Compile-time assertion that PeerResolver implements domain.PeerKeyResolver.
var _ domain.PeerKeyResolver = (*PeerResolver)(nil)
