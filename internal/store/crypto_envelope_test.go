package store_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatseal/internal/store"
)

// testCost keeps scrypt fast in tests.
var testCost = store.ScryptParams{N: 1 << 10, R: 8, P: 1}

func TestSealedKVRoundTrip(t *testing.T) {
	inner := store.NewMemoryKV(0)
	kv, err := store.NewSealedKV(inner, "correct horse", testCost)
	require.NoError(t, err)

	require.NoError(t, kv.Put("vault/alice", []byte("top secret")))

	v, ok, err := kv.Get("vault/alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "top secret", string(v))

	raw, ok, err := inner.Get("vault/alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, bytes.Contains(raw, []byte("top secret")), "value stored in clear")
}

func TestSealedKVReopen(t *testing.T) {
	inner := store.NewMemoryKV(0)
	kv, err := store.NewSealedKV(inner, "correct horse", testCost)
	require.NoError(t, err)
	require.NoError(t, kv.Put("vault/alice", []byte("top secret")))

	_, err = store.NewSealedKV(inner, "wrong horse", testCost)
	assert.ErrorIs(t, err, store.ErrWrongPassphrase)

	again, err := store.NewSealedKV(inner, "correct horse", testCost)
	require.NoError(t, err)
	v, ok, err := again.Get("vault/alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "top secret", string(v))
}

func TestSealedKVBindsValueToKey(t *testing.T) {
	inner := store.NewMemoryKV(0)
	kv, err := store.NewSealedKV(inner, "pw", testCost)
	require.NoError(t, err)
	require.NoError(t, kv.Put("vault/alice", []byte("alice key")))

	raw, _, err := inner.Get("vault/alice")
	require.NoError(t, err)
	require.NoError(t, inner.Put("vault/mallory", raw))

	_, _, err = kv.Get("vault/mallory")
	assert.ErrorIs(t, err, store.ErrWrongPassphrase)
}

func TestSealedKVHidesBookkeeping(t *testing.T) {
	kv, err := store.NewSealedKV(store.NewMemoryKV(0), "pw", testCost)
	require.NoError(t, err)

	keys, err := kv.Keys("")
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, kv.Put("a", []byte("1")))
	require.NoError(t, kv.Clear())
	require.NoError(t, kv.Put("b", []byte("2")), "store stays usable after Clear")
	keys, err = kv.Keys("")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestSealedKVClearKeepsPlainNeighbours(t *testing.T) {
	inner := store.NewMemoryKV(0)
	kv, err := store.NewSealedKV(inner, "pw", testCost)
	require.NoError(t, err)

	require.NoError(t, kv.Put("vault/alice", []byte("secret")))
	require.NoError(t, inner.Put("ledger/c1/m1", []byte(`{"id":"m1"}`)))
	require.NoError(t, kv.Clear())

	_, ok, err := kv.Get("vault/alice")
	require.NoError(t, err)
	assert.False(t, ok)

	raw, ok, err := inner.Get("ledger/c1/m1")
	require.NoError(t, err)
	require.True(t, ok, "plain values on the shared engine survive Clear")
	assert.Equal(t, []byte(`{"id":"m1"}`), raw)

	reopened, err := store.NewSealedKV(inner, "pw", testCost)
	require.NoError(t, err, "passphrase check survives Clear")
	require.NoError(t, reopened.Close())
}

func TestSealedKVCloseLocks(t *testing.T) {
	kv, err := store.NewSealedKV(store.NewMemoryKV(0), "pw", testCost)
	require.NoError(t, err)
	require.NoError(t, kv.Close())
	assert.Error(t, kv.Put("a", []byte("1")))
}
