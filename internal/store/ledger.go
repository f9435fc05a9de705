package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"chatseal/internal/domain"
)

const (
	ledgerPrefix = "ledger/"

	// DefaultLedgerMaxEntries is how many messages per conversation survive
	// a quota trim.
	DefaultLedgerMaxEntries = 1000
)

// LedgerOption customises a Ledger.
type LedgerOption func(*Ledger)

// WithLedgerMaxEntries sets how many messages per conversation survive a
// quota trim.
func WithLedgerMaxEntries(n int) LedgerOption {
	return func(l *Ledger) {
		if n > 0 {
			l.max = n
		}
	}
}

// Ledger keeps each conversation's encrypted messages on the device, sorted
// by CreatedAt. Plaintext is never written.
//
// Ledger writes are best effort: when the engine is full every conversation
// is trimmed to its newest entries and the write retried once. If that fails
// too the write is dropped and logged.
type Ledger struct {
	kv  domain.KVStore
	log logrus.FieldLogger
	max int

	mu sync.Mutex
}

// NewLedger returns a Ledger over kv.
func NewLedger(kv domain.KVStore, log logrus.FieldLogger, opts ...LedgerOption) *Ledger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	l := &Ledger{kv: kv, log: log, max: DefaultLedgerMaxEntries}
	for _, o := range opts {
		o(l)
	}
	return l
}

func ledgerKey(id domain.ConversationID) string { return ledgerPrefix + string(id) }

func (l *Ledger) load(id domain.ConversationID) ([]domain.Message, error) {
	raw, ok, err := l.kv.Get(ledgerKey(id))
	if err != nil {
		return nil, storageErr("ledger get "+string(id), err)
	}
	if !ok {
		return nil, nil
	}
	var msgs []domain.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, storageErr("ledger decode "+string(id), err)
	}
	return msgs, nil
}

func (l *Ledger) store(id domain.ConversationID, msgs []domain.Message) error {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	return l.kv.Put(ledgerKey(id), raw)
}

// Append adds msg to its conversation. Only an invalid message is reported;
// storage trouble is logged.
func (l *Ledger) Append(id domain.ConversationID, msg domain.Message) error {
	msg.ConversationID = id
	if err := msg.Validate(); err != nil {
		return err
	}
	msg.DecryptedText, msg.DecryptErr = "", nil

	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.log.WithFields(logrus.Fields{"conversation_id": id, "message_id": msg.ID})

	msgs, err := l.load(id)
	if err != nil {
		log.WithError(err).Warn("ledger: load failed; write dropped")
		return nil
	}
	msgs = append(msgs, msg)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) })

	err = l.store(id, msgs)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		log.WithError(err).Warn("ledger: write dropped")
		return nil
	}

	log.Warn("ledger: storage full; trimming conversations")
	l.trimAll()
	if err := l.store(id, l.newest(msgs)); err != nil {
		log.WithError(err).Warn("ledger: write dropped after trim")
	}
	return nil
}

func (l *Ledger) newest(msgs []domain.Message) []domain.Message {
	if len(msgs) <= l.max {
		return msgs
	}
	return msgs[len(msgs)-l.max:]
}

// trimAll cuts every stored conversation down to its newest entries.
func (l *Ledger) trimAll() {
	keys, err := l.kv.Keys(ledgerPrefix)
	if err != nil {
		l.log.WithError(err).Warn("ledger: list conversations for trim failed")
		return
	}
	for _, k := range keys {
		id := domain.ConversationID(strings.TrimPrefix(k, ledgerPrefix))
		msgs, err := l.load(id)
		if err != nil || len(msgs) <= l.max {
			continue
		}
		if err := l.store(id, l.newest(msgs)); err != nil {
			l.log.WithError(err).WithField("conversation_id", id).Warn("ledger: trim write failed")
		}
	}
}

// LoadAll returns the conversation's messages, oldest first. Unreadable
// history reads as empty.
func (l *Ledger) LoadAll(id domain.ConversationID) []domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs, err := l.load(id)
	if err != nil {
		l.log.WithError(err).WithField("conversation_id", id).Warn("ledger: load failed")
		return nil
	}
	return msgs
}

// Clear forgets a conversation's history.
func (l *Ledger) Clear(id domain.ConversationID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.kv.Delete(ledgerKey(id)); err != nil {
		return storageErr("ledger clear "+string(id), err)
	}
	return nil
}

// AppendMessage implements domain.MessageStore.
func (l *Ledger) AppendMessage(_ context.Context, msg domain.Message) error {
	return l.Append(msg.ConversationID, msg)
}

// ListMessages implements domain.MessageStore.
func (l *Ledger) ListMessages(_ context.Context, id domain.ConversationID) ([]domain.Message, error) {
	return l.LoadAll(id), nil
}

// Compile-time assertion that Ledger implements domain.MessageStore.
var _ domain.MessageStore = (*Ledger)(nil)
