package crypto_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatseal/internal/crypto"
	"chatseal/internal/domain"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerateKeyPairDerivesPublic(t *testing.T) {
	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	derived, err := crypto.PublicFromPrivate(priv)
	require.NoError(t, err)
	assert.Equal(t, pub, derived)
}

func TestBoxRoundTrip(t *testing.T) {
	alicePub, alicePriv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	bobPub, bobPriv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	nonce, err := crypto.NewNonce()
	require.NoError(t, err)

	sealed := crypto.Box([]byte("hello"), nonce, bobPub, alicePriv)
	out, err := crypto.OpenBox(sealed, nonce, alicePub, bobPriv)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	// Either party can open with the other's public key.
	out, err = crypto.OpenBox(sealed, nonce, bobPub, alicePriv)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	evePub, evePriv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	_, err = crypto.OpenBox(sealed, nonce, evePub, bobPriv)
	assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
	_, err = crypto.OpenBox(sealed, nonce, alicePub, evePriv)
	assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
}

func TestSealAnonymousOnlyRecipientOpens(t *testing.T) {
	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	otherPub, otherPriv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	sealed, err := crypto.SealAnonymous([]byte("conversation key"), pub)
	require.NoError(t, err)

	out, err := crypto.OpenAnonymous(sealed, pub, priv)
	require.NoError(t, err)
	assert.Equal(t, "conversation key", string(out))

	_, err = crypto.OpenAnonymous(sealed, otherPub, otherPriv)
	assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
}

func TestSecretBoxDetectsTampering(t *testing.T) {
	key, err := crypto.NewSymmetricKey()
	require.NoError(t, err)
	nonce, err := crypto.NewNonce()
	require.NoError(t, err)

	sealed := crypto.SecretBox([]byte("payload"), nonce, key)
	out, err := crypto.OpenSecretBox(sealed, nonce, key)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(out))

	sealed[len(sealed)-1] ^= 0x01
	_, err = crypto.OpenSecretBox(sealed, nonce, key)
	assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
}

func TestNoncesAreFresh(t *testing.T) {
	seen := make(map[[crypto.NonceSize]byte]bool)
	for i := 0; i < 64; i++ {
		n, err := crypto.NewNonce()
		require.NoError(t, err)
		require.False(t, seen[*n], "nonce repeated")
		seen[*n] = true
	}
}

func TestRandomFailureIsPrimitiveUnavailable(t *testing.T) {
	restore := crypto.SwapRandReader(failingReader{})
	defer restore()

	_, _, err := crypto.GenerateKeyPair()
	assert.ErrorIs(t, err, domain.ErrPrimitiveUnavailable)
	_, err = crypto.NewNonce()
	assert.ErrorIs(t, err, domain.ErrPrimitiveUnavailable)
	_, err = crypto.RandomBytes(8)
	assert.ErrorIs(t, err, domain.ErrPrimitiveUnavailable)
	_, err = crypto.SealAnonymous([]byte("x"), domain.X25519Public{9})
	assert.ErrorIs(t, err, domain.ErrPrimitiveUnavailable)
}

func TestDecodeKey(t *testing.T) {
	pub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	got, err := crypto.DecodePublic(crypto.B64(pub[:]))
	require.NoError(t, err)
	assert.Equal(t, pub, got)

	for name, in := range map[string]string{
		"not base64": "%%%not-base64%%%",
		"too short":  crypto.B64(make([]byte, 31)),
		"too long":   crypto.B64(make([]byte, 33)),
		"empty":      "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := crypto.DecodeKey(in)
			assert.ErrorIs(t, err, domain.ErrInvalidKeyEncoding)
		})
	}
}

func TestDecodePayloadRejectsTruncatedNonce(t *testing.T) {
	_, _, err := crypto.DecodePayload(domain.EncryptedPayload{
		CipherText: crypto.B64([]byte("abc")),
		Nonce:      crypto.B64(make([]byte, crypto.NonceSize-1)),
	})
	assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
}

func TestFingerprintIsStable(t *testing.T) {
	pub := domain.X25519Public{1, 2, 3}
	assert.Equal(t, crypto.Fingerprint(pub), crypto.Fingerprint(pub))
	assert.Len(t, crypto.Fingerprint(pub).String(), 20)
	assert.NotEqual(t, crypto.Fingerprint(pub), crypto.Fingerprint(domain.X25519Public{3, 2, 1}))
}

func TestKeyringUsePrivate(t *testing.T) {
	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	want := priv

	ring, err := crypto.NewKeyring("alice", &priv)
	require.NoError(t, err)
	assert.Equal(t, domain.X25519Private{}, priv, "caller copy should be wiped")
	assert.Equal(t, pub, ring.PublicKey())
	assert.Equal(t, domain.UserID("alice"), ring.UserID())

	require.NoError(t, ring.UsePrivate(func(p *domain.X25519Private) error {
		assert.Equal(t, want, *p)
		return nil
	}))

	ring.Destroy()
	err = ring.UsePrivate(func(*domain.X25519Private) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNoIdentity)
}
