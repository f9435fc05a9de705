package identity_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatseal/internal/crypto"
	"chatseal/internal/domain"
	"chatseal/internal/services/identity"
	"chatseal/internal/store"
)

type fakeProfiles struct {
	mu        sync.Mutex
	keys      map[domain.UserID]string
	publishes int
	fetches   int
	fetchErr  error
}

func newFakeProfiles() *fakeProfiles { return &fakeProfiles{keys: map[domain.UserID]string{}} }

func (f *fakeProfiles) FetchProfile(_ context.Context, user domain.UserID) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return domain.Profile{}, f.fetchErr
	}
	key, ok := f.keys[user]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return domain.Profile{UserID: user, PublicKey: key}, nil
}

func (f *fakeProfiles) PublishPublicKey(_ context.Context, user domain.UserID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes++
	f.keys[user] = key
	return nil
}

func TestGenerateKeyPair(t *testing.T) {
	pair, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	assert.True(t, identity.ValidatePublicKey(pair.PublicKey))

	rebuilt, err := identity.PairFromPrivate(pair.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, pair, rebuilt)

	other, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	assert.NotEqual(t, pair.PrivateKey, other.PrivateKey)
}

func TestValidatePublicKey(t *testing.T) {
	cases := map[string]bool{
		crypto.B64(make([]byte, 32)): true,
		crypto.B64(make([]byte, 31)): false,
		crypto.B64(make([]byte, 33)): false,
		"":                           false,
		"not base64 at all!":         false,
	}
	for in, want := range cases {
		assert.Equal(t, want, identity.ValidatePublicKey(in), "input %q", in)
	}
}

func TestDecodeKeyRejectsMalformed(t *testing.T) {
	_, err := identity.DecodeKey("AAAA")
	assert.ErrorIs(t, err, domain.ErrInvalidKeyEncoding)

	k := [32]byte{1, 2, 3}
	got, err := identity.DecodeKey(identity.EncodeKey(k))
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestEnsureIdentityFirstRun(t *testing.T) {
	ctx := context.Background()
	vault := store.NewVault(store.NewMemoryKV(0), nil)
	profiles := newFakeProfiles()
	svc := identity.New(vault, profiles, nil)

	pair, err := svc.EnsureIdentity(ctx, "alice")
	require.NoError(t, err)

	stored, ok, err := vault.Get("alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pair.PrivateKey, stored)
	assert.Equal(t, pair.PublicKey, profiles.keys["alice"])

	// Second run reuses the key and does not republish.
	again, err := svc.EnsureIdentity(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, pair, again)
	assert.Equal(t, 1, profiles.publishes)
}

func TestEnsureIdentityRepublishesLocalKey(t *testing.T) {
	ctx := context.Background()
	vault := store.NewVault(store.NewMemoryKV(0), nil)
	pair, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, vault.Save("alice", pair.PrivateKey))

	profiles := newFakeProfiles()
	profiles.keys["alice"] = crypto.B64(make([]byte, 32))

	got, err := identity.New(vault, profiles, nil).EnsureIdentity(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, pair, got)
	assert.Equal(t, pair.PublicKey, profiles.keys["alice"])
}

func TestEnsureIdentityVaultFailureIsLoud(t *testing.T) {
	vault := &brokenVault{err: domain.ErrStorage}
	profiles := newFakeProfiles()

	_, err := identity.New(vault, profiles, nil).EnsureIdentity(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Zero(t, profiles.publishes, "no key published after vault failure")
}

func TestEnsureIdentityProfileFailure(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.fetchErr = errors.New("relay down")
	vault := store.NewVault(store.NewMemoryKV(0), nil)

	_, err := identity.New(vault, profiles, nil).EnsureIdentity(context.Background(), "alice")
	assert.Error(t, err)
	_, ok, _ := vault.Get("alice")
	assert.False(t, ok, "no key minted while the directory is unreachable")
}

func TestFingerprint(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfiles()
	svc := identity.New(store.NewVault(store.NewMemoryKV(0), nil), profiles, nil)
	pair, err := svc.EnsureIdentity(ctx, "alice")
	require.NoError(t, err)

	fp, err := svc.Fingerprint(ctx, "alice")
	require.NoError(t, err)
	pub, err := crypto.DecodePublic(pair.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, crypto.Fingerprint(pub), fp)

	_, err = svc.Fingerprint(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPeerResolverCachesProfileKey(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfiles()
	pair, err := identity.GenerateKeyPair()
	require.NoError(t, err)
	profiles.keys["bob"] = pair.PublicKey
	cache := store.NewPeerKeyCache(store.NewMemoryKV(0), nil)
	r := identity.NewPeerResolver(profiles, cache, nil)

	pub, err := r.PeerPublicKey(ctx, "conv", "bob")
	require.NoError(t, err)
	assert.Equal(t, pair.PublicKey, identity.EncodeKey(pub))

	_, err = r.PeerPublicKey(ctx, "conv", "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, profiles.fetches, "second lookup served from cache")

	cached, ok := cache.PeerPublicKey("conv", "bob")
	require.True(t, ok)
	assert.Equal(t, pair.PublicKey, cached)
}

func TestPeerResolverMissingKey(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfiles()
	profiles.keys["carol"] = ""
	r := identity.NewPeerResolver(profiles, store.NewPeerKeyCache(store.NewMemoryKV(0), nil), nil)

	_, err := r.PeerPublicKey(ctx, "conv", "carol")
	assert.ErrorIs(t, err, domain.ErrKeyNotProvisioned)
	_, err = r.PeerPublicKey(ctx, "conv", "dave")
	assert.ErrorIs(t, err, domain.ErrKeyNotProvisioned)
}

type brokenVault struct{ err error }

func (b *brokenVault) Save(domain.UserID, string) error { return b.err }

func (b *brokenVault) Get(domain.UserID) (string, bool, error) { return "", false, b.err }

func (b *brokenVault) Delete(domain.UserID) error { return b.err }

func (b *brokenVault) ExportBackup(domain.UserID) ([]byte, error) { return nil, b.err }

func (b *brokenVault) ImportBackup([]byte) (domain.UserID, error) { return "", b.err }
