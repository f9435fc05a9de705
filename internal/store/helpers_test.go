package store_test

import (
	"errors"
	"strings"
	"sync"

	"chatseal/internal/domain"
	"chatseal/internal/store"
)

var errDiskGone = errors.New("disk gone")

// flakyKV wraps a MemoryKV and fails selected operations on demand.
type flakyKV struct {
	*store.MemoryKV

	mu        sync.Mutex
	failGet   bool
	failPut   bool
	quotaOnce bool // next Put under putPrefix reports quota exceeded
	putPrefix string
	puts      int
}

func newFlakyKV() *flakyKV { return &flakyKV{MemoryKV: store.NewMemoryKV(0)} }

func (f *flakyKV) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return nil, false, errDiskGone
	}
	return f.MemoryKV.Get(key)
}

func (f *flakyKV) Put(key string, value []byte) error {
	f.mu.Lock()
	f.puts++
	fail := f.failPut
	quota := f.quotaOnce && strings.HasPrefix(key, f.putPrefix)
	if quota {
		f.quotaOnce = false
	}
	f.mu.Unlock()
	if fail {
		return errDiskGone
	}
	if quota {
		return domain.ErrQuotaExceeded
	}
	return f.MemoryKV.Put(key, value)
}

func (f *flakyKV) set(fn func(f *flakyKV)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

var _ domain.KVStore = (*flakyKV)(nil)
