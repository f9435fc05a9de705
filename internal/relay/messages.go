package relay

import (
	"context"

	"chatseal/internal/domain"
)

// MessageStore keeps messages on the relay.
type MessageStore struct {
	Remote domain.RemoteStore
	Limit  int // newest messages loaded per conversation; <= 0 means all
}

// AppendMessage stores msg remotely.
func (s MessageStore) AppendMessage(ctx context.Context, msg domain.Message) error {
	return s.Remote.SaveMessage(ctx, msg)
}

// ListMessages loads the conversation's messages from the relay.
func (s MessageStore) ListMessages(ctx context.Context, id domain.ConversationID) ([]domain.Message, error) {
	return s.Remote.FetchMessages(ctx, id, s.Limit)
}

// Compile-time assertion that MessageStore implements domain.MessageStore.
var _ domain.MessageStore = MessageStore{}
