package interfaces

import (
	"context"

	domaintypes "chatseal/internal/domain/types"
)

// ProfileDirectory publishes and looks up users' public keys.
type ProfileDirectory interface {
	FetchProfile(ctx context.Context, userID domaintypes.UserID) (domaintypes.Profile, error)
	PublishPublicKey(ctx context.Context, userID domaintypes.UserID, publicKey string) error
}

// KeyDirectory stores conversations and their sealed key records.
type KeyDirectory interface {
	CreateConversation(
		ctx context.Context,
		conversation domaintypes.Conversation,
		keys []domaintypes.SealedConversationKeyRecord,
	) error
	FetchConversation(ctx context.Context, id domaintypes.ConversationID) (domaintypes.Conversation, error)
	StoreSealedKeys(
		ctx context.Context,
		id domaintypes.ConversationID,
		keys []domaintypes.SealedConversationKeyRecord,
	) error
	FetchSealedKey(
		ctx context.Context,
		id domaintypes.ConversationID,
		userID domaintypes.UserID,
	) (domaintypes.SealedConversationKeyRecord, bool, error)
}

// RemoteStore is the untrusted server collaborator, all with context.
type RemoteStore interface {
	ProfileDirectory
	KeyDirectory
	ListConversations(ctx context.Context, userID domaintypes.UserID) ([]domaintypes.Conversation, error)
	SaveMessage(ctx context.Context, msg domaintypes.Message) error
	FetchMessages(ctx context.Context, id domaintypes.ConversationID, limit int) ([]domaintypes.Message, error)
}

// MessageStore is where sent messages go and loaded messages come from.
// It is either the remote store or the local ledger, chosen at wiring time.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg domaintypes.Message) error
	ListMessages(ctx context.Context, id domaintypes.ConversationID) ([]domaintypes.Message, error)
}
