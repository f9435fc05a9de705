package interfaces

import (
	"context"

	domaintypes "chatseal/internal/domain/types"
)

// IdentityKeys is the session's handle on the logged-in user's key pair.
// The private key is only reachable inside UsePrivate.
type IdentityKeys interface {
	UserID() domaintypes.UserID
	PublicKey() domaintypes.X25519Public
	UsePrivate(fn func(priv *domaintypes.X25519Private) error) error
}

// PeerKeyResolver finds a participant's public key for a conversation.
type PeerKeyResolver interface {
	PeerPublicKey(
		ctx context.Context,
		conversationID domaintypes.ConversationID,
		peerID domaintypes.UserID,
	) (domaintypes.X25519Public, error)
}

// ConversationKeyResolver returns the symmetric key for a conversation.
type ConversationKeyResolver interface {
	ResolveConversationKey(
		ctx context.Context,
		id domaintypes.ConversationID,
	) (domaintypes.ConversationKey, error)
}

// MessageService encrypts, sends, loads and decrypts messages for a session.
type MessageService interface {
	SendMessage(ctx context.Context, id domaintypes.ConversationID, text string) (domaintypes.Message, error)
	SendDirect(
		ctx context.Context,
		id domaintypes.ConversationID,
		peerID domaintypes.UserID,
		text string,
	) (domaintypes.Message, error)
	LoadConversation(ctx context.Context, id domaintypes.ConversationID) ([]domaintypes.Message, error)
}
