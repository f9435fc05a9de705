package types

import "time"

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// IdentityKeyPair is a user's long-term X25519 pair in base64 form.
//
// PrivateKey is never serialised; only PublicKey may leave the device.
type IdentityKeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"-"`
}

// StoredPrivateKeyRecord is the vault record for one user's private key.
type StoredPrivateKeyRecord struct {
	UserID       UserID    `json:"userId"`
	PrivateKey   string    `json:"privateKey"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
}

// ConversationKey is a base64 encoded 32-byte symmetric key shared by all
// participants of one conversation. It only ever leaves the device sealed.
type ConversationKey string

// SealedConversationKeyRecord is a conversation key sealed to one
// participant's public key. The server stores these verbatim.
type SealedConversationKeyRecord struct {
	ConversationID ConversationID `json:"conversationId"`
	UserID         UserID         `json:"userId"`
	EncryptedKey   string         `json:"encryptedKey"`
}

// BackupWarning is written into every exported backup document.
const BackupWarning = "This file contains your private key. Anyone with it can read your messages. Store it offline and never share it."

// BackupDocument is the portable export of a private key.
type BackupDocument struct {
	UserID     UserID    `json:"userId"`
	PrivateKey string    `json:"privateKey"`
	ExportedAt time.Time `json:"exportedAt"`
	Warning    string    `json:"warning"`
}
