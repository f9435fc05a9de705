package relayserver

import (
	"context"
	"sort"
	"sync"

	"chatseal/internal/domain"
)

type keyID struct {
	conv domain.ConversationID
	user domain.UserID
}

// MemoryStore holds all relay state in memory. It is lost on exit.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[domain.UserID]domain.Profile
	convs    map[domain.ConversationID]domain.Conversation
	keys     map[keyID]domain.SealedConversationKeyRecord
	messages map[domain.ConversationID][]domain.Message
	ids      map[domain.MessageID]bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[domain.UserID]domain.Profile),
		convs:    make(map[domain.ConversationID]domain.Conversation),
		keys:     make(map[keyID]domain.SealedConversationKeyRecord),
		messages: make(map[domain.ConversationID][]domain.Message),
		ids:      make(map[domain.MessageID]bool),
	}
}

// PutProfile stores p, replacing any earlier key.
func (s *MemoryStore) PutProfile(_ context.Context, p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

// GetProfile returns the profile of user.
func (s *MemoryStore) GetProfile(_ context.Context, user domain.UserID) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[user]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

// CreateConversation stores c together with its initial sealed keys.
func (s *MemoryStore) CreateConversation(
	_ context.Context,
	c domain.Conversation,
	keys []domain.SealedConversationKeyRecord,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[c.ID]; ok {
		return domain.ErrConflict
	}
	if err := s.checkNewKeys(keys); err != nil {
		return err
	}
	c.Participants = append([]domain.UserID(nil), c.Participants...)
	s.convs[c.ID] = c
	s.putKeys(keys)
	return nil
}

// GetConversation returns the conversation with id.
func (s *MemoryStore) GetConversation(_ context.Context, id domain.ConversationID) (domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	if !ok {
		return domain.Conversation{}, domain.ErrNotFound
	}
	return c, nil
}

// ListConversations returns the conversations user takes part in.
func (s *MemoryStore) ListConversations(_ context.Context, user domain.UserID) ([]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Conversation
	for _, c := range s.convs {
		if c.HasParticipant(user) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// AddSealedKeys stores keys for id. Any existing record rejects the batch.
func (s *MemoryStore) AddSealedKeys(
	_ context.Context,
	id domain.ConversationID,
	keys []domain.SealedConversationKeyRecord,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[id]; !ok {
		return domain.ErrNotFound
	}
	if err := s.checkNewKeys(keys); err != nil {
		return err
	}
	s.putKeys(keys)
	return nil
}

func (s *MemoryStore) checkNewKeys(keys []domain.SealedConversationKeyRecord) error {
	seen := make(map[keyID]bool, len(keys))
	for _, k := range keys {
		id := keyID{k.ConversationID, k.UserID}
		if _, ok := s.keys[id]; ok || seen[id] {
			return domain.ErrConflict
		}
		seen[id] = true
	}
	return nil
}

func (s *MemoryStore) putKeys(keys []domain.SealedConversationKeyRecord) {
	for _, k := range keys {
		s.keys[keyID{k.ConversationID, k.UserID}] = k
	}
}

// GetSealedKey returns the sealed key of user in id.
func (s *MemoryStore) GetSealedKey(
	_ context.Context,
	id domain.ConversationID,
	user domain.UserID,
) (domain.SealedConversationKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[keyID{id, user}]
	if !ok {
		return domain.SealedConversationKeyRecord{}, domain.ErrNotFound
	}
	return k, nil
}

// AddMessage stores msg. A reused message id is domain.ErrConflict.
func (s *MemoryStore) AddMessage(_ context.Context, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids[msg.ID] {
		return domain.ErrConflict
	}
	s.ids[msg.ID] = true
	msgs := append(s.messages[msg.ConversationID], msg)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })
	s.messages[msg.ConversationID] = msgs
	return nil
}

// ListMessages returns up to limit of the newest messages, oldest first.
func (s *MemoryStore) ListMessages(_ context.Context, id domain.ConversationID, limit int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[id]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]domain.Message(nil), msgs...), nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Compile-time assertion that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
