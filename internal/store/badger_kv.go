package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"chatseal/internal/domain"
)

// BadgerConfig configures a BadgerKV.
type BadgerConfig struct {
	Path       string // database directory; ignored when InMemory
	InMemory   bool
	QuotaBytes int64 // <= 0 means unlimited
	Logger     logrus.FieldLogger
}

// BadgerKV is a KVStore backed by an embedded badger database.
type BadgerKV struct {
	db  *badger.DB
	log logrus.FieldLogger

	// mu serialises writes so quota accounting stays exact.
	mu    sync.Mutex
	quota int64
	used  int64
}

// OpenBadger opens (or creates) the database described by cfg.
func OpenBadger(cfg BadgerConfig) (*BadgerKV, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithMemTableSize(16 << 20)
	}
	opts.Logger = nil
	opts.SyncWrites = !cfg.InMemory

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storageErr("open badger "+cfg.Path, err)
	}

	kv := &BadgerKV{db: db, log: cfg.Logger, quota: cfg.QuotaBytes}
	if kv.quota > 0 {
		if kv.used, err = kv.usage(); err != nil {
			_ = db.Close()
			return nil, err
		}
		kv.log.WithFields(logrus.Fields{
			"used_bytes":  kv.used,
			"quota_bytes": kv.quota,
		}).Debug("store: badger opened with quota")
	}
	return kv, nil
}

// usage sums key and value sizes over the whole database.
func (k *BadgerKV) usage() (int64, error) {
	var used int64
	err := k.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			used += int64(len(item.Key())) + item.ValueSize()
		}
		return nil
	})
	if err != nil {
		return 0, storageErr("badger usage", err)
	}
	return used, nil
}

// Get returns the value stored under key.
func (k *BadgerKV) Get(key string) ([]byte, bool, error) {
	var out []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageErr("badger get "+key, err)
	}
	return out, true, nil
}

// Put stores value under key, enforcing the quota if one is set.
func (k *BadgerKV) Put(key string, value []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	delta := int64(len(key) + len(value))
	err := k.db.Update(func(txn *badger.Txn) error {
		if k.quota > 0 {
			item, err := txn.Get([]byte(key))
			switch {
			case err == nil:
				delta -= int64(len(key)) + item.ValueSize()
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}
			if k.used+delta > k.quota {
				return fmt.Errorf("%w: put %s (%d of %d bytes used)", domain.ErrQuotaExceeded, key, k.used, k.quota)
			}
		}
		return txn.Set([]byte(key), value)
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("%w: put %s: %v", domain.ErrQuotaExceeded, key, err)
	}
	if err != nil {
		return storageErr("badger put "+key, err)
	}
	k.used += delta
	return nil
}

// Delete removes key; a missing key is not an error.
func (k *BadgerKV) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var freed int64
	err := k.db.Update(func(txn *badger.Txn) error {
		if k.quota > 0 {
			item, err := txn.Get([]byte(key))
			switch {
			case err == nil:
				freed = int64(len(key)) + item.ValueSize()
			case errors.Is(err, badger.ErrKeyNotFound):
				return nil
			default:
				return err
			}
		}
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return storageErr("badger delete "+key, err)
	}
	k.used -= freed
	return nil
}

// Keys lists keys starting with prefix in lexical order.
func (k *BadgerKV) Keys(prefix string) ([]string, error) {
	var out []string
	err := k.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			out = append(out, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("badger keys "+prefix, err)
	}
	return out, nil
}

// Clear drops every key.
func (k *BadgerKV) Clear() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.db.DropAll(); err != nil {
		return storageErr("badger clear", err)
	}
	k.used = 0
	return nil
}

// Close flushes and closes the database.
func (k *BadgerKV) Close() error {
	if err := k.db.Close(); err != nil {
		return storageErr("badger close", err)
	}
	return nil
}

// Compile-time assertion that BadgerKV implements domain.KVStore.
var _ domain.KVStore = (*BadgerKV)(nil)
