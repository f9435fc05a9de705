package convkey

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chatseal/internal/domain"
)

// Manager resolves and provisions conversation keys for one session.
type Manager struct {
	identity  domain.IdentityKeys
	directory domain.KeyDirectory
	peers     domain.PeerKeyResolver
	log       logrus.FieldLogger
	now       func() time.Time

	mu    sync.RWMutex
	cache map[domain.ConversationID]domain.ConversationKey
}

// NewManager returns a Manager acting for identity's owner.
func NewManager(
	identity domain.IdentityKeys,
	directory domain.KeyDirectory,
	peers domain.PeerKeyResolver,
	log logrus.FieldLogger,
) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		identity:  identity,
		directory: directory,
		peers:     peers,
		log:       log.WithField("user_id", identity.UserID()),
		now:       time.Now,
		cache:     make(map[domain.ConversationID]domain.ConversationKey),
	}
}

func (m *Manager) cached(id domain.ConversationID) (domain.ConversationKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.cache[id]
	return k, ok
}

func (m *Manager) remember(id domain.ConversationID, key domain.ConversationKey) {
	m.mu.Lock()
	m.cache[id] = key
	m.mu.Unlock()
}

// ResolveConversationKey returns the caller's key for the conversation,
// fetching and unsealing it on first use. With no sealed record for the
// caller it fails with domain.ErrKeyNotProvisioned.
//
// Concurrent misses for the same conversation may each unseal; they all
// produce the same key.
func (m *Manager) ResolveConversationKey(ctx context.Context, id domain.ConversationID) (domain.ConversationKey, error) {
	if k, ok := m.cached(id); ok {
		return k, nil
	}

	me := m.identity.UserID()
	rec, ok, err := m.directory.FetchSealedKey(ctx, id, me)
	if err != nil {
		return "", fmt.Errorf("fetch sealed key for %s: %w", id, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: no key for %s in conversation %s", domain.ErrKeyNotProvisioned, me, id)
	}

	var key domain.ConversationKey
	err = m.identity.UsePrivate(func(priv *domain.X25519Private) error {
		var err error
		key, err = unseal(rec.EncryptedKey, m.identity.PublicKey(), priv)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("unseal key for %s: %w", id, err)
	}
	m.remember(id, key)
	return key, nil
}

// SetupConversationKey provisions a key for an existing conversation.
//
// If the caller already holds a sealed record, that key is sealed for every
// participant still missing one. Otherwise a new key is minted, sealed for
// every participant and stored in one call. Losing a race to another
// participant's setup shows up as domain.ErrConflict from the server, after
// which the winner's key is used if it was sealed for the caller.
func (m *Manager) SetupConversationKey(
	ctx context.Context,
	id domain.ConversationID,
	participants []domain.UserID,
) (domain.ConversationKey, error) {
	log := m.log.WithField("conversation_id", id)

	key, err := m.ResolveConversationKey(ctx, id)
	if err == nil {
		if err := m.sealMissing(ctx, id, key, participants); err != nil {
			return "", err
		}
		return key, nil
	}
	if !errors.Is(err, domain.ErrKeyNotProvisioned) {
		return "", err
	}

	key, err = GenerateConversationKey()
	if err != nil {
		return "", err
	}
	records, err := m.sealForAll(ctx, id, key, withSelf(participants, m.identity.UserID()))
	if err != nil {
		return "", err
	}

	err = m.directory.StoreSealedKeys(ctx, id, records)
	if errors.Is(err, domain.ErrConflict) {
		log.Info("convkey: another participant provisioned first")
		key, err := m.ResolveConversationKey(ctx, id)
		if errors.Is(err, domain.ErrKeyNotProvisioned) {
			return "", fmt.Errorf("%w: conversation %s has a key that is not yet sealed for %s",
				domain.ErrKeyNotProvisioned, id, m.identity.UserID())
		}
		return key, err
	}
	if err != nil {
		return "", fmt.Errorf("store sealed keys for %s: %w", id, err)
	}
	m.remember(id, key)
	log.WithField("participants", len(records)).Info("convkey: provisioned conversation key")
	return key, nil
}

// CreateConversation starts a conversation between the caller and others.
// The conversation and every sealed key record are stored together.
func (m *Manager) CreateConversation(
	ctx context.Context,
	others []domain.UserID,
) (domain.Conversation, domain.ConversationKey, error) {
	conv := domain.Conversation{
		ID:           domain.ConversationID(uuid.NewString()),
		Participants: withSelf(others, m.identity.UserID()),
		CreatedBy:    m.identity.UserID(),
		CreatedAt:    m.now().UTC(),
	}

	key, err := GenerateConversationKey()
	if err != nil {
		return domain.Conversation{}, "", err
	}
	records, err := m.sealForAll(ctx, conv.ID, key, conv.Participants)
	if err != nil {
		return domain.Conversation{}, "", err
	}
	if err := m.directory.CreateConversation(ctx, conv, records); err != nil {
		return domain.Conversation{}, "", fmt.Errorf("create conversation: %w", err)
	}
	m.remember(conv.ID, key)
	m.log.WithFields(logrus.Fields{
		"conversation_id": conv.ID,
		"participants":    len(conv.Participants),
	}).Info("convkey: created conversation")
	return conv, key, nil
}

// Forget drops every cached key.
func (m *Manager) Forget() {
	m.mu.Lock()
	m.cache = make(map[domain.ConversationID]domain.ConversationKey)
	m.mu.Unlock()
}

// sealMissing seals key for each participant without a stored record.
func (m *Manager) sealMissing(
	ctx context.Context,
	id domain.ConversationID,
	key domain.ConversationKey,
	participants []domain.UserID,
) error {
	log := m.log.WithField("conversation_id", id)
	me := m.identity.UserID()

	var missing []domain.UserID
	for _, p := range participants {
		if p == "" || p == me {
			continue
		}
		_, ok, err := m.directory.FetchSealedKey(ctx, id, p)
		if err != nil {
			return fmt.Errorf("fetch sealed key for %s: %w", p, err)
		}
		if !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		log.Debug("convkey: already provisioned")
		return nil
	}

	records := make([]domain.SealedConversationKeyRecord, 0, len(missing))
	seen := make(map[domain.UserID]bool, len(missing))
	for _, p := range missing {
		if seen[p] {
			continue
		}
		seen[p] = true
		pub, err := m.peers.PeerPublicKey(ctx, id, p)
		if err != nil {
			return err
		}
		sealed, err := sealFor(key, pub)
		if err != nil {
			return err
		}
		records = append(records, domain.SealedConversationKeyRecord{
			ConversationID: id,
			UserID:         p,
			EncryptedKey:   sealed,
		})
	}

	err := m.directory.StoreSealedKeys(ctx, id, records)
	if errors.Is(err, domain.ErrConflict) {
		// Another holder sealed the same key concurrently.
		log.Info("convkey: missing records stored by another participant")
		return nil
	}
	if err != nil {
		return fmt.Errorf("store sealed keys for %s: %w", id, err)
	}
	log.WithField("participants", len(records)).Info("convkey: sealed key for missing participants")
	return nil
}

func (m *Manager) sealForAll(
	ctx context.Context,
	id domain.ConversationID,
	key domain.ConversationKey,
	participants []domain.UserID,
) ([]domain.SealedConversationKeyRecord, error) {
	me := m.identity.UserID()
	records := make([]domain.SealedConversationKeyRecord, 0, len(participants))
	for _, p := range participants {
		pub := m.identity.PublicKey()
		if p != me {
			var err error
			if pub, err = m.peers.PeerPublicKey(ctx, id, p); err != nil {
				return nil, err
			}
		}
		sealed, err := sealFor(key, pub)
		if err != nil {
			return nil, err
		}
		records = append(records, domain.SealedConversationKeyRecord{
			ConversationID: id,
			UserID:         p,
			EncryptedKey:   sealed,
		})
	}
	return records, nil
}

// withSelf returns participants deduplicated, with me included.
func withSelf(participants []domain.UserID, me domain.UserID) []domain.UserID {
	seen := map[domain.UserID]bool{me: true}
	out := []domain.UserID{me}
	for _, p := range participants {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Compile-time assertion that Manager implements domain.ConversationKeyResolver.
var _ domain.ConversationKeyResolver = (*Manager)(nil)
