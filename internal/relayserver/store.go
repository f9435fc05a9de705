package relayserver

import (
	"context"

	"chatseal/internal/domain"
)

// Store is the relay's persistence. Implementations report missing records
// as domain.ErrNotFound and duplicates as domain.ErrConflict.
type Store interface {
	PutProfile(ctx context.Context, p domain.Profile) error
	GetProfile(ctx context.Context, user domain.UserID) (domain.Profile, error)

	CreateConversation(ctx context.Context, c domain.Conversation, keys []domain.SealedConversationKeyRecord) error
	GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error)
	ListConversations(ctx context.Context, user domain.UserID) ([]domain.Conversation, error)

	AddSealedKeys(ctx context.Context, id domain.ConversationID, keys []domain.SealedConversationKeyRecord) error
	GetSealedKey(ctx context.Context, id domain.ConversationID, user domain.UserID) (domain.SealedConversationKeyRecord, error)

	AddMessage(ctx context.Context, msg domain.Message) error
	ListMessages(ctx context.Context, id domain.ConversationID, limit int) ([]domain.Message, error)

	Ping(ctx context.Context) error
}
