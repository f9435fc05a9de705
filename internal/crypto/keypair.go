package crypto

import (
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"chatseal/internal/domain"
)

// GenerateKeyPair returns a fresh X25519 key pair.
func GenerateKeyPair() (pub domain.X25519Public, priv domain.X25519Private, err error) {
	p, s, err := box.GenerateKey(randReader)
	if err != nil {
		return pub, priv, fmt.Errorf("%w: generate key pair: %v", domain.ErrPrimitiveUnavailable, err)
	}
	pub, priv = domain.X25519Public(*p), domain.X25519Private(*s)
	Wipe(s[:])
	return pub, priv, nil
}

// PublicFromPrivate recomputes the public half of an X25519 key pair.
func PublicFromPrivate(priv domain.X25519Private) (pub domain.X25519Public, err error) {
	b, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return pub, fmt.Errorf("%w: %v", domain.ErrInvalidKeyEncoding, err)
	}
	copy(pub[:], b)
	return pub, nil
}
