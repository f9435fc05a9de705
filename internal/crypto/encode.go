package crypto

import (
	"encoding/base64"
	"fmt"

	"chatseal/internal/domain"
)

// B64 returns standard base64 encoding without newlines.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// FromB64 decodes standard base64 with padding.
func FromB64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

// DecodeKey decodes a base64 string that must hold exactly 32 bytes.
func DecodeKey(s string) (out [KeySize]byte, err error) {
	b, err := FromB64(s)
	if err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrInvalidKeyEncoding, err)
	}
	defer Wipe(b)
	if len(b) != KeySize {
		return out, fmt.Errorf("%w: got %d bytes, want %d", domain.ErrInvalidKeyEncoding, len(b), KeySize)
	}
	copy(out[:], b)
	return out, nil
}

// DecodePublic decodes a base64 X25519 public key.
func DecodePublic(s string) (domain.X25519Public, error) {
	k, err := DecodeKey(s)
	return domain.X25519Public(k), err
}

// DecodePrivate decodes a base64 X25519 private key.
func DecodePrivate(s string) (domain.X25519Private, error) {
	k, err := DecodeKey(s)
	return domain.X25519Private(k), err
}

// decodeNonce decodes a payload nonce. Anything but 24 bytes cannot have
// come from this package and fails as a decryption error.
func decodeNonce(s string) (*[NonceSize]byte, error) {
	b, err := FromB64(s)
	if err != nil || len(b) != NonceSize {
		return nil, fmt.Errorf("%w: malformed nonce", domain.ErrDecryptionFailed)
	}
	var n [NonceSize]byte
	copy(n[:], b)
	return &n, nil
}

// DecodePayload decodes the ciphertext and nonce of an encrypted payload.
func DecodePayload(p domain.EncryptedPayload) (sealed []byte, nonce *[NonceSize]byte, err error) {
	nonce, err = decodeNonce(p.Nonce)
	if err != nil {
		return nil, nil, err
	}
	sealed, err = FromB64(p.CipherText)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: malformed ciphertext", domain.ErrDecryptionFailed)
	}
	return sealed, nonce, nil
}
