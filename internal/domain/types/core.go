package types

// UserID identifies an authenticated user of the chat host.
type UserID string

// String returns the string form of the user identifier.
func (u UserID) String() string { return string(u) }

// ConversationID identifies a conversation shared by two or more users.
type ConversationID string

// String returns the string form of the conversation identifier.
func (id ConversationID) String() string { return string(id) }

// MessageID uniquely identifies a stored message.
type MessageID string

// String returns the string form of the message identifier.
func (id MessageID) String() string { return string(id) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
