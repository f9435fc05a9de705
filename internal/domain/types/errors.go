package types

import "errors"

var (
	// ErrPrimitiveUnavailable means the random source or cipher backend failed.
	ErrPrimitiveUnavailable = errors.New("cryptographic primitive unavailable")
	// ErrInvalidKeyEncoding means a key was not 32 bytes of standard base64.
	ErrInvalidKeyEncoding = errors.New("invalid key encoding")
	// ErrDecryptionFailed means authentication failed: wrong key, tampering or
	// a malformed payload.
	ErrDecryptionFailed = errors.New("decryption failed")
	// ErrKeyNotProvisioned means no conversation key or public key exists yet
	// for the caller. It is recoverable by running key setup.
	ErrKeyNotProvisioned = errors.New("key not provisioned")
	// ErrStorage wraps failures of the local storage engine.
	ErrStorage = errors.New("storage failure")
	// ErrQuotaExceeded means the local storage engine is full.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrInvalidBackupFormat means an imported backup could not be used.
	ErrInvalidBackupFormat = errors.New("invalid backup format")
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a record already exists and may not be replaced.
	ErrConflict = errors.New("already exists")
	// ErrNoIdentity means the session has no identity private key.
	ErrNoIdentity = errors.New("no identity loaded")
	// ErrNotParticipant means the user is not part of the conversation.
	ErrNotParticipant = errors.New("not a conversation participant")
	// ErrInvalidRecord means a record failed validation at a boundary.
	ErrInvalidRecord = errors.New("invalid record")
)
