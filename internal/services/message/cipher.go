package message

import (
	"chatseal/internal/crypto"
	"chatseal/internal/domain"
)

// EncryptPairwise boxes plaintext from senderPrivateKey's owner to
// recipientPublicKey under a fresh nonce.
func EncryptPairwise(plaintext, recipientPublicKey, senderPrivateKey string) (domain.EncryptedPayload, error) {
	pub, err := crypto.DecodePublic(recipientPublicKey)
	if err != nil {
		return domain.EncryptedPayload{}, err
	}
	priv, err := crypto.DecodePrivate(senderPrivateKey)
	if err != nil {
		return domain.EncryptedPayload{}, err
	}
	defer crypto.Wipe(priv[:])
	return encryptPairwise(plaintext, pub, &priv)
}

func encryptPairwise(plaintext string, pub domain.X25519Public, priv *domain.X25519Private) (domain.EncryptedPayload, error) {
	nonce, err := crypto.NewNonce()
	if err != nil {
		return domain.EncryptedPayload{}, err
	}
	sealed := crypto.Box([]byte(plaintext), nonce, pub, *priv)
	return domain.EncryptedPayload{CipherText: crypto.B64(sealed), Nonce: crypto.B64(nonce[:])}, nil
}

// DecryptPairwise opens a pairwise payload using the other party's public
// key and the caller's private key.
func DecryptPairwise(payload domain.EncryptedPayload, counterpartyPublicKey, ownPrivateKey string) (string, error) {
	pub, err := crypto.DecodePublic(counterpartyPublicKey)
	if err != nil {
		return "", err
	}
	priv, err := crypto.DecodePrivate(ownPrivateKey)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(priv[:])
	return decryptPairwise(payload, pub, &priv)
}

func decryptPairwise(payload domain.EncryptedPayload, pub domain.X25519Public, priv *domain.X25519Private) (string, error) {
	sealed, nonce, err := crypto.DecodePayload(payload)
	if err != nil {
		return "", err
	}
	out, err := crypto.OpenBox(sealed, nonce, pub, *priv)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncryptWithConversationKey seals plaintext with the conversation key
// under a fresh nonce.
func EncryptWithConversationKey(plaintext string, key domain.ConversationKey) (domain.EncryptedPayload, error) {
	k, err := crypto.DecodeKey(string(key))
	if err != nil {
		return domain.EncryptedPayload{}, err
	}
	defer crypto.Wipe(k[:])
	nonce, err := crypto.NewNonce()
	if err != nil {
		return domain.EncryptedPayload{}, err
	}
	sealed := crypto.SecretBox([]byte(plaintext), nonce, &k)
	return domain.EncryptedPayload{CipherText: crypto.B64(sealed), Nonce: crypto.B64(nonce[:])}, nil
}

// DecryptWithConversationKey opens a conversation payload.
func DecryptWithConversationKey(payload domain.EncryptedPayload, key domain.ConversationKey) (string, error) {
	k, err := crypto.DecodeKey(string(key))
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(k[:])
	sealed, nonce, err := crypto.DecodePayload(payload)
	if err != nil {
		return "", err
	}
	out, err := crypto.OpenSecretBox(sealed, nonce, &k)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
