package crypto

import (
	"fmt"

	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"

	"chatseal/internal/domain"
)

// Box encrypts and authenticates msg from priv's owner to peer.
func Box(msg []byte, nonce *[NonceSize]byte, peer domain.X25519Public, priv domain.X25519Private) []byte {
	return box.Seal(nil, msg, nonce, (*[KeySize]byte)(&peer), (*[KeySize]byte)(&priv))
}

// OpenBox authenticates and decrypts a Box from peer.
func OpenBox(
	sealed []byte,
	nonce *[NonceSize]byte,
	peer domain.X25519Public,
	priv domain.X25519Private,
) ([]byte, error) {
	out, ok := box.Open(nil, sealed, nonce, (*[KeySize]byte)(&peer), (*[KeySize]byte)(&priv))
	if !ok {
		return nil, domain.ErrDecryptionFailed
	}
	return out, nil
}

// SealAnonymous encrypts msg so that only the holder of pub's private key
// can open it. The sender stays anonymous.
func SealAnonymous(msg []byte, pub domain.X25519Public) ([]byte, error) {
	out, err := box.SealAnonymous(nil, msg, (*[KeySize]byte)(&pub), randReader)
	if err != nil {
		return nil, fmt.Errorf("%w: seal: %v", domain.ErrPrimitiveUnavailable, err)
	}
	return out, nil
}

// OpenAnonymous opens a sealed box addressed to the (pub, priv) pair.
func OpenAnonymous(sealed []byte, pub domain.X25519Public, priv domain.X25519Private) ([]byte, error) {
	out, ok := box.OpenAnonymous(nil, sealed, (*[KeySize]byte)(&pub), (*[KeySize]byte)(&priv))
	if !ok {
		return nil, domain.ErrDecryptionFailed
	}
	return out, nil
}

// SecretBox encrypts and authenticates msg under a symmetric key.
func SecretBox(msg []byte, nonce *[NonceSize]byte, key *[KeySize]byte) []byte {
	return secretbox.Seal(nil, msg, nonce, key)
}

// OpenSecretBox authenticates and decrypts a SecretBox.
func OpenSecretBox(sealed []byte, nonce *[NonceSize]byte, key *[KeySize]byte) ([]byte, error) {
	out, ok := secretbox.Open(nil, sealed, nonce, key)
	if !ok {
		return nil, domain.ErrDecryptionFailed
	}
	return out, nil
}
