package crypto

import (
	"crypto/rand"
	"fmt"
	"io"

	"chatseal/internal/domain"
)

const (
	// KeySize is the length of every key handled by this package.
	KeySize = 32
	// NonceSize is the length of box and secretbox nonces.
	NonceSize = 24
)

// randReader is the only source of randomness in the package.
var randReader io.Reader = rand.Reader

// RandomBytes returns n bytes from the system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, fmt.Errorf("%w: read random: %v", domain.ErrPrimitiveUnavailable, err)
	}
	return b, nil
}

// NewNonce returns a fresh random 24-byte nonce.
func NewNonce() (*[NonceSize]byte, error) {
	var n [NonceSize]byte
	if _, err := io.ReadFull(randReader, n[:]); err != nil {
		return nil, fmt.Errorf("%w: read nonce: %v", domain.ErrPrimitiveUnavailable, err)
	}
	return &n, nil
}

// NewSymmetricKey returns a fresh random 32-byte key.
func NewSymmetricKey() (*[KeySize]byte, error) {
	var k [KeySize]byte
	if _, err := io.ReadFull(randReader, k[:]); err != nil {
		return nil, fmt.Errorf("%w: read key: %v", domain.ErrPrimitiveUnavailable, err)
	}
	return &k, nil
}
