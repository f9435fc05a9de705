package store_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatseal/internal/domain"
	"chatseal/internal/store"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ledgerMsg(conv domain.ConversationID, i int) domain.Message {
	return domain.Message{
		ID:             domain.MessageID(fmt.Sprintf("m%04d", i)),
		ConversationID: conv,
		SenderID:       "alice",
		Scheme:         domain.SchemeConversation,
		CipherText:     "Y2lwaGVy",
		Nonce:          "bm9uY2U=",
		CreatedAt:      t0.Add(time.Duration(i) * time.Second),
	}
}

func TestLedgerKeepsOrder(t *testing.T) {
	l := store.NewLedger(store.NewMemoryKV(0), nil)

	for _, i := range []int{3, 1, 2} {
		require.NoError(t, l.Append("conv", ledgerMsg("conv", i)))
	}
	got := l.LoadAll("conv")
	require.Len(t, got, 3)
	for i, m := range got {
		assert.Equal(t, domain.MessageID(fmt.Sprintf("m%04d", i+1)), m.ID)
	}

	assert.Empty(t, l.LoadAll("other"))
}

func TestLedgerNeverStoresPlaintext(t *testing.T) {
	kv := store.NewMemoryKV(0)
	l := store.NewLedger(kv, nil)

	m := ledgerMsg("conv", 1)
	m.DecryptedText = "hello bob"
	require.NoError(t, l.Append("conv", m))

	raw, ok, err := kv.Get("ledger/conv")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, string(raw), "hello bob")
	assert.Empty(t, l.LoadAll("conv")[0].DecryptedText)
}

func TestLedgerRejectsInvalidMessage(t *testing.T) {
	l := store.NewLedger(store.NewMemoryKV(0), nil)
	m := ledgerMsg("conv", 1)
	m.Scheme = "rot13"
	assert.ErrorIs(t, l.Append("conv", m), domain.ErrInvalidRecord)
}

func TestLedgerClear(t *testing.T) {
	l := store.NewLedger(store.NewMemoryKV(0), nil)
	require.NoError(t, l.Append("a", ledgerMsg("a", 1)))
	require.NoError(t, l.Append("b", ledgerMsg("b", 1)))

	require.NoError(t, l.Clear("a"))
	assert.Empty(t, l.LoadAll("a"))
	assert.Len(t, l.LoadAll("b"), 1)
}

func TestLedgerTrimsOnQuota(t *testing.T) {
	kv := newFlakyKV()
	l := store.NewLedger(kv, nil)

	// Seed one conversation at the cap and another above it.
	seed := func(conv domain.ConversationID, n int) {
		msgs := make([]domain.Message, n)
		for i := range msgs {
			msgs[i] = ledgerMsg(conv, i)
		}
		raw, err := json.Marshal(msgs)
		require.NoError(t, err)
		require.NoError(t, kv.Put("ledger/"+string(conv), raw))
	}
	seed("busy", store.DefaultLedgerMaxEntries)
	seed("old", store.DefaultLedgerMaxEntries+20)

	kv.set(func(f *flakyKV) { f.quotaOnce, f.putPrefix = true, "ledger/busy" })
	require.NoError(t, l.Append("busy", ledgerMsg("busy", store.DefaultLedgerMaxEntries)))

	busy := l.LoadAll("busy")
	require.Len(t, busy, store.DefaultLedgerMaxEntries)
	assert.Equal(t, domain.MessageID("m0001"), busy[0].ID, "oldest entry trimmed")
	assert.Equal(t, domain.MessageID(fmt.Sprintf("m%04d", store.DefaultLedgerMaxEntries)), busy[len(busy)-1].ID)

	old := l.LoadAll("old")
	require.Len(t, old, store.DefaultLedgerMaxEntries)
	assert.Equal(t, domain.MessageID("m0020"), old[0].ID)
}

func TestLedgerDropsWriteWhenRetryFails(t *testing.T) {
	kv := newFlakyKV()
	l := store.NewLedger(kv, nil, store.WithLedgerMaxEntries(2))
	require.NoError(t, l.Append("conv", ledgerMsg("conv", 1)))

	kv.set(func(f *flakyKV) { f.failPut = true })
	require.NoError(t, l.Append("conv", ledgerMsg("conv", 2)), "ledger failures are not escalated")

	kv.set(func(f *flakyKV) { f.failPut = false })
	assert.Len(t, l.LoadAll("conv"), 1)
}

func TestLedgerAsMessageStore(t *testing.T) {
	var ms domain.MessageStore = store.NewLedger(store.NewMemoryKV(0), nil)
	ctx := context.Background()

	require.NoError(t, ms.AppendMessage(ctx, ledgerMsg("conv", 2)))
	require.NoError(t, ms.AppendMessage(ctx, ledgerMsg("conv", 1)))
	got, err := ms.ListMessages(ctx, "conv")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.MessageID("m0001"), got[0].ID)
}
