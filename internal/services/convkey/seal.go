package convkey

import (
	"fmt"

	"chatseal/internal/crypto"
	"chatseal/internal/domain"
)

// GenerateConversationKey returns a fresh random conversation key.
func GenerateConversationKey() (domain.ConversationKey, error) {
	k, err := crypto.NewSymmetricKey()
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(k[:])
	return domain.ConversationKey(crypto.B64(k[:])), nil
}

// SealKeyForParticipant seals key so only the owner of participantPublicKey
// can recover it.
func SealKeyForParticipant(key domain.ConversationKey, participantPublicKey string) (string, error) {
	pub, err := crypto.DecodePublic(participantPublicKey)
	if err != nil {
		return "", err
	}
	return sealFor(key, pub)
}

func sealFor(key domain.ConversationKey, pub domain.X25519Public) (string, error) {
	raw, err := crypto.DecodeKey(string(key))
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(raw[:])
	sealed, err := crypto.SealAnonymous(raw[:], pub)
	if err != nil {
		return "", err
	}
	return crypto.B64(sealed), nil
}

// UnsealOwnKey recovers a conversation key sealed to the caller. Wrong keys
// and corrupted records fail with domain.ErrDecryptionFailed.
func UnsealOwnKey(sealed, ownPrivateKey, ownPublicKey string) (domain.ConversationKey, error) {
	priv, err := crypto.DecodePrivate(ownPrivateKey)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(priv[:])
	pub, err := crypto.DecodePublic(ownPublicKey)
	if err != nil {
		return "", err
	}
	return unseal(sealed, pub, &priv)
}

func unseal(sealed string, pub domain.X25519Public, priv *domain.X25519Private) (domain.ConversationKey, error) {
	blob, err := crypto.FromB64(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: sealed key is not base64", domain.ErrDecryptionFailed)
	}
	raw, err := crypto.OpenAnonymous(blob, pub, *priv)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(raw)
	if len(raw) != crypto.KeySize {
		return "", fmt.Errorf("%w: sealed key has %d bytes", domain.ErrDecryptionFailed, len(raw))
	}
	return domain.ConversationKey(crypto.B64(raw)), nil
}
