package interfaces

import domaintypes "chatseal/internal/domain/types"

// KVStore is the local key-value engine behind every client-side store.
// Missing keys are reported with ok=false, never as an error.
type KVStore interface {
	Get(key string) (value []byte, ok bool, err error)
	Put(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
	Clear() error
	Close() error
}

// PrivateKeyVault persists identity private keys per user, encrypted at rest.
type PrivateKeyVault interface {
	Save(userID domaintypes.UserID, privateKey string) error
	Get(userID domaintypes.UserID) (privateKey string, ok bool, err error)
	Delete(userID domaintypes.UserID) error
	ExportBackup(userID domaintypes.UserID) ([]byte, error)
	ImportBackup(blob []byte) (domaintypes.UserID, error)
}

// PeerKeyCache remembers peers' public keys per conversation. It is advisory:
// failures read as absent.
type PeerKeyCache interface {
	SavePeerPublicKey(conversationID domaintypes.ConversationID, peerID domaintypes.UserID, publicKey string)
	PeerPublicKey(conversationID domaintypes.ConversationID, peerID domaintypes.UserID) (string, bool)
	Clear() error
}

// SentTextCache remembers the plaintext of messages this device sent.
type SentTextCache interface {
	SaveSentText(id domaintypes.MessageID, text string)
	SentText(id domaintypes.MessageID) (string, bool)
	Clear() error
}
