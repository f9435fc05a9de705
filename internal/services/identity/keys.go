package identity

import (
	"chatseal/internal/crypto"
	"chatseal/internal/domain"
)

// GenerateKeyPair returns a fresh identity key pair in base64 form.
func GenerateKeyPair() (domain.IdentityKeyPair, error) {
	pub, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return domain.IdentityKeyPair{}, err
	}
	defer crypto.Wipe(priv[:])
	return domain.IdentityKeyPair{PublicKey: EncodeKey(pub), PrivateKey: EncodeKey(priv)}, nil
}

// PairFromPrivate rebuilds the full pair from a stored private key.
func PairFromPrivate(privateKey string) (domain.IdentityKeyPair, error) {
	priv, err := crypto.DecodePrivate(privateKey)
	if err != nil {
		return domain.IdentityKeyPair{}, err
	}
	defer crypto.Wipe(priv[:])
	pub, err := crypto.PublicFromPrivate(priv)
	if err != nil {
		return domain.IdentityKeyPair{}, err
	}
	return domain.IdentityKeyPair{PublicKey: EncodeKey(pub), PrivateKey: privateKey}, nil
}

// ValidatePublicKey reports whether candidate is 32 bytes of base64.
func ValidatePublicKey(candidate string) bool {
	_, err := crypto.DecodeKey(candidate)
	return err == nil
}

// EncodeKey renders a 32-byte key as standard base64.
func EncodeKey(k [crypto.KeySize]byte) string { return crypto.B64(k[:]) }

// DecodeKey parses a base64 key; anything but 32 bytes is
// domain.ErrInvalidKeyEncoding.
func DecodeKey(s string) ([crypto.KeySize]byte, error) { return crypto.DecodeKey(s) }
