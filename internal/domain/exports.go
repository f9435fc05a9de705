package domain

import (
	interfaces "chatseal/internal/domain/interfaces"
	types "chatseal/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	UserID                      = types.UserID
	ConversationID              = types.ConversationID
	MessageID                   = types.MessageID
	Fingerprint                 = types.Fingerprint
	X25519Public                = types.X25519Public
	X25519Private               = types.X25519Private
	IdentityKeyPair             = types.IdentityKeyPair
	StoredPrivateKeyRecord      = types.StoredPrivateKeyRecord
	ConversationKey             = types.ConversationKey
	SealedConversationKeyRecord = types.SealedConversationKeyRecord
	BackupDocument              = types.BackupDocument
	Scheme                      = types.Scheme
	EncryptedPayload            = types.EncryptedPayload
	Message                     = types.Message
	Profile                     = types.Profile
	Conversation                = types.Conversation
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KVStore                 = interfaces.KVStore
	PrivateKeyVault         = interfaces.PrivateKeyVault
	PeerKeyCache            = interfaces.PeerKeyCache
	SentTextCache           = interfaces.SentTextCache
	ProfileDirectory        = interfaces.ProfileDirectory
	KeyDirectory            = interfaces.KeyDirectory
	RemoteStore             = interfaces.RemoteStore
	MessageStore            = interfaces.MessageStore
	IdentityKeys            = interfaces.IdentityKeys
	PeerKeyResolver         = interfaces.PeerKeyResolver
	ConversationKeyResolver = interfaces.ConversationKeyResolver
	MessageService          = interfaces.MessageService
)

const (
	SchemeConversation = types.SchemeConversation
	SchemePairwise     = types.SchemePairwise
	SentinelText       = types.SentinelText
	BackupWarning      = types.BackupWarning
)
