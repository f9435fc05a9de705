package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"chatseal/internal/domain"
	"chatseal/internal/util/memzero"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub domain.X25519Public) domain.Fingerprint {
	sum := sha256.Sum256(pub[:])
	return domain.Fingerprint(hex.EncodeToString(sum[:10]))
}

// Wipe zeroes b in place.
func Wipe(b []byte) { memzero.Zero(b) }
