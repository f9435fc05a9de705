package crypto

import (
	"fmt"
	"sync"

	"github.com/awnumar/memguard"

	"chatseal/internal/domain"
)

// Keyring holds the logged-in user's identity key pair for one session.
//
// The private key lives in a memguard enclave and is only decrypted into
// locked memory for the duration of a UsePrivate call.
type Keyring struct {
	user domain.UserID
	pub  domain.X25519Public

	mu      sync.RWMutex
	enclave *memguard.Enclave
}

// NewKeyring moves priv into an enclave. The caller's copy is wiped.
func NewKeyring(user domain.UserID, priv *domain.X25519Private) (*Keyring, error) {
	pub, err := PublicFromPrivate(*priv)
	if err != nil {
		Wipe(priv[:])
		return nil, err
	}
	// NewEnclave wipes its input.
	return &Keyring{user: user, pub: pub, enclave: memguard.NewEnclave(priv[:])}, nil
}

// UserID returns the owner of the key pair.
func (k *Keyring) UserID() domain.UserID { return k.user }

// PublicKey returns the public half of the key pair.
func (k *Keyring) PublicKey() domain.X25519Public { return k.pub }

// UsePrivate calls fn with the decrypted private key. The key is destroyed
// when fn returns and must not be retained.
func (k *Keyring) UsePrivate(fn func(priv *domain.X25519Private) error) error {
	k.mu.RLock()
	enclave := k.enclave
	k.mu.RUnlock()
	if enclave == nil {
		return domain.ErrNoIdentity
	}

	buf, err := enclave.Open()
	if err != nil {
		return fmt.Errorf("%w: open key enclave: %v", domain.ErrPrimitiveUnavailable, err)
	}
	defer buf.Destroy()
	return fn((*domain.X25519Private)(buf.ByteArray32()))
}

// Destroy drops the enclave. Later UsePrivate calls fail with ErrNoIdentity.
func (k *Keyring) Destroy() {
	k.mu.Lock()
	k.enclave = nil
	k.mu.Unlock()
}

// Compile-time assertion that Keyring implements domain.IdentityKeys.
var _ domain.IdentityKeys = (*Keyring)(nil)
