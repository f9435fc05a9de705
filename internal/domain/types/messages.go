package types

import (
	"fmt"
	"time"
)

// Scheme tags which cipher mode produced a message.
type Scheme string

const (
	// SchemeConversation messages are sealed with the conversation key.
	SchemeConversation Scheme = "conversation"
	// SchemePairwise messages are boxed from the sender to one recipient.
	SchemePairwise Scheme = "pairwise"
)

// SentinelText replaces the text of a message that could not be decrypted.
const SentinelText = "[Unable to decrypt message]"

// EncryptedPayload is the output of one encryption: ciphertext and the nonce
// used to produce it, both base64.
type EncryptedPayload struct {
	CipherText string `json:"cipherText"`
	Nonce      string `json:"nonce"`
}

// Message is the stored form of a chat message. The server only ever sees
// the JSON-tagged fields.
type Message struct {
	ID             MessageID      `json:"id"`
	ConversationID ConversationID `json:"conversationId"`
	SenderID       UserID         `json:"senderId"`
	RecipientID    UserID         `json:"recipientId,omitempty"`
	Scheme         Scheme         `json:"scheme"`
	CipherText     string         `json:"cipherText"`
	Nonce          string         `json:"nonce"`
	CreatedAt      time.Time      `json:"createdAt"`

	// DecryptedText is filled in locally after decryption and never persisted.
	DecryptedText string `json:"-"`
	// DecryptErr records why DecryptedText holds SentinelText.
	DecryptErr error `json:"-"`
}

// Payload returns the message's ciphertext and nonce.
func (m Message) Payload() EncryptedPayload {
	return EncryptedPayload{CipherText: m.CipherText, Nonce: m.Nonce}
}

// Validate checks the fields every stored message must carry.
func (m Message) Validate() error {
	switch {
	case m.ID == "":
		return fmt.Errorf("%w: message without id", ErrInvalidRecord)
	case m.ConversationID == "":
		return fmt.Errorf("%w: message %s without conversation", ErrInvalidRecord, m.ID)
	case m.SenderID == "":
		return fmt.Errorf("%w: message %s without sender", ErrInvalidRecord, m.ID)
	case m.CipherText == "" || m.Nonce == "":
		return fmt.Errorf("%w: message %s without payload", ErrInvalidRecord, m.ID)
	}
	switch m.Scheme {
	case SchemeConversation:
	case SchemePairwise:
		if m.RecipientID == "" {
			return fmt.Errorf("%w: pairwise message %s without recipient", ErrInvalidRecord, m.ID)
		}
	default:
		return fmt.Errorf("%w: message %s has unknown scheme %q", ErrInvalidRecord, m.ID, m.Scheme)
	}
	return nil
}

// Profile is the public directory entry for a user.
type Profile struct {
	UserID    UserID `json:"userId"`
	PublicKey string `json:"publicKey,omitempty"`
}

// Conversation is the server-side record of who takes part in a conversation.
type Conversation struct {
	ID           ConversationID `json:"id"`
	Participants []UserID       `json:"participants"`
	CreatedBy    UserID         `json:"createdBy"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// HasParticipant reports whether user takes part in the conversation.
func (c Conversation) HasParticipant(user UserID) bool {
	for _, p := range c.Participants {
		if p == user {
			return true
		}
	}
	return false
}
