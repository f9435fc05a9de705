package message

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chatseal/internal/domain"
)

// Service sends and loads messages for the session's user.
type Service struct {
	identity domain.IdentityKeys
	keys     domain.ConversationKeyResolver
	peers    domain.PeerKeyResolver
	sent     domain.SentTextCache
	store    domain.MessageStore
	log      logrus.FieldLogger
	now      func() time.Time

	// Sentinel replaces the text of messages that fail to decrypt.
	Sentinel string
}

// New constructs a message Service.
func New(
	identity domain.IdentityKeys,
	keys domain.ConversationKeyResolver,
	peers domain.PeerKeyResolver,
	sent domain.SentTextCache,
	store domain.MessageStore,
	log logrus.FieldLogger,
) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		identity: identity,
		keys:     keys,
		peers:    peers,
		sent:     sent,
		store:    store,
		log:      log.WithField("user_id", identity.UserID()),
		now:      time.Now,
		Sentinel: domain.SentinelText,
	}
}

func (s *Service) stamp(id domain.ConversationID, scheme domain.Scheme, p domain.EncryptedPayload) domain.Message {
	return domain.Message{
		ID:             domain.MessageID(uuid.NewString()),
		ConversationID: id,
		SenderID:       s.identity.UserID(),
		Scheme:         scheme,
		CipherText:     p.CipherText,
		Nonce:          p.Nonce,
		CreatedAt:      s.now().UTC(),
	}
}

// deliver caches the plaintext, then writes msg through the message store.
func (s *Service) deliver(ctx context.Context, msg domain.Message, text string) (domain.Message, error) {
	s.sent.SaveSentText(msg.ID, text)
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return domain.Message{}, fmt.Errorf("store message %s: %w", msg.ID, err)
	}
	msg.DecryptedText = text
	return msg, nil
}

// SendMessage encrypts text with the conversation key and stores it.
// Without a provisioned key it fails with domain.ErrKeyNotProvisioned.
func (s *Service) SendMessage(ctx context.Context, id domain.ConversationID, text string) (domain.Message, error) {
	key, err := s.keys.ResolveConversationKey(ctx, id)
	if err != nil {
		return domain.Message{}, err
	}
	payload, err := EncryptWithConversationKey(text, key)
	if err != nil {
		return domain.Message{}, err
	}
	return s.deliver(ctx, s.stamp(id, domain.SchemeConversation, payload), text)
}

// SendDirect boxes text from the caller to peerID and stores it.
func (s *Service) SendDirect(
	ctx context.Context,
	id domain.ConversationID,
	peerID domain.UserID,
	text string,
) (domain.Message, error) {
	pub, err := s.peers.PeerPublicKey(ctx, id, peerID)
	if err != nil {
		return domain.Message{}, err
	}
	var payload domain.EncryptedPayload
	err = s.identity.UsePrivate(func(priv *domain.X25519Private) error {
		var err error
		payload, err = encryptPairwise(text, pub, priv)
		return err
	})
	if err != nil {
		return domain.Message{}, err
	}
	msg := s.stamp(id, domain.SchemePairwise, payload)
	msg.RecipientID = peerID
	return s.deliver(ctx, msg, text)
}

// LoadConversation fetches the conversation's messages and decrypts them
// concurrently. The result is ordered by CreatedAt; failed messages carry
// the Sentinel text and their DecryptErr.
func (s *Service) LoadConversation(ctx context.Context, id domain.ConversationID) ([]domain.Message, error) {
	msgs, err := s.store.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}
	return s.DecryptAll(ctx, msgs), nil
}

type decryption struct {
	text string
	err  error
}

// DecryptAll decrypts msgs in parallel and attaches each result to its
// message by id. It never fails as a whole.
func (s *Service) DecryptAll(ctx context.Context, msgs []domain.Message) []domain.Message {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[domain.MessageID]decryption, len(msgs))
	)
	for _, m := range msgs {
		wg.Add(1)
		go func(m domain.Message) {
			defer wg.Done()
			text, err := s.Decrypt(ctx, m)
			mu.Lock()
			results[m.ID] = decryption{text: text, err: err}
			mu.Unlock()
		}(m)
	}
	wg.Wait()

	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		r := results[m.ID]
		if r.err != nil {
			s.log.WithError(r.err).WithFields(logrus.Fields{
				"conversation_id": m.ConversationID,
				"message_id":      m.ID,
			}).Warn("message: decryption failed")
			m.DecryptedText, m.DecryptErr = s.Sentinel, r.err
		} else {
			m.DecryptedText, m.DecryptErr = r.text, nil
		}
		out[i] = m
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Decrypt returns the plaintext of one message.
func (s *Service) Decrypt(ctx context.Context, m domain.Message) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	me := s.identity.UserID()

	switch m.Scheme {
	case domain.SchemeConversation:
		key, err := s.keys.ResolveConversationKey(ctx, m.ConversationID)
		if err != nil {
			return "", err
		}
		return DecryptWithConversationKey(m.Payload(), key)

	case domain.SchemePairwise:
		// Our own pairwise messages cannot be reopened; they come from the cache.
		if m.SenderID == me {
			if text, ok := s.sent.SentText(m.ID); ok {
				return text, nil
			}
			return "", fmt.Errorf("%w: sent text for %s not cached on this device", domain.ErrDecryptionFailed, m.ID)
		}
		if m.RecipientID != me {
			return "", fmt.Errorf("%w: message %s is addressed to %s", domain.ErrDecryptionFailed, m.ID, m.RecipientID)
		}
		pub, err := s.peers.PeerPublicKey(ctx, m.ConversationID, m.SenderID)
		if err != nil {
			return "", err
		}
		var text string
		err = s.identity.UsePrivate(func(priv *domain.X25519Private) error {
			var err error
			text, err = decryptPairwise(m.Payload(), pub, priv)
			return err
		})
		return text, err
	}
	return "", fmt.Errorf("%w: unknown scheme %q", domain.ErrInvalidRecord, m.Scheme)
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
