package domain

import types "chatseal/internal/domain/types"

// Error taxonomy shared by every layer. Callers match with errors.Is.
var (
	ErrPrimitiveUnavailable = types.ErrPrimitiveUnavailable
	ErrInvalidKeyEncoding   = types.ErrInvalidKeyEncoding
	ErrDecryptionFailed     = types.ErrDecryptionFailed
	ErrKeyNotProvisioned    = types.ErrKeyNotProvisioned
	ErrStorage              = types.ErrStorage
	ErrQuotaExceeded        = types.ErrQuotaExceeded
	ErrInvalidBackupFormat  = types.ErrInvalidBackupFormat
	ErrNotFound             = types.ErrNotFound
	ErrConflict             = types.ErrConflict
	ErrNoIdentity           = types.ErrNoIdentity
	ErrNotParticipant       = types.ErrNotParticipant
	ErrInvalidRecord        = types.ErrInvalidRecord
)
