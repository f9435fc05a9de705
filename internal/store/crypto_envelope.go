package store

import (
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"chatseal/internal/crypto"
	"chatseal/internal/domain"
)

const (
	// The current supported version of the sealed value format.
	keystoreFormatVersion = 1

	sealPrefix    = "_seal/"
	sealParamsKey = sealPrefix + "params"
	sealCheck     = "chatseal sealed store"
)

// ErrWrongPassphrase is returned when the passphrase is incorrect or a
// sealed value has been modified or corrupted.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted store")

// ScryptParams are the key derivation tunables.
type ScryptParams struct {
	N, R, P int
}

// DefaultScryptParams returns the production key derivation cost.
func DefaultScryptParams() ScryptParams { return ScryptParams{N: 1 << 15, R: 8, P: 1} }

// sealParams is stored in clear next to the sealed values. Check is a
// sealed known value used to reject a wrong passphrase up front.
type sealParams struct {
	V     int    `json:"v"`
	Salt  []byte `json:"salt"`
	N     int    `json:"scrypt_N"`
	R     int    `json:"scrypt_r"`
	P     int    `json:"scrypt_p"`
	Check []byte `json:"check"`
}

// blob is the stored JSON structure for one sealed value.
type blob struct {
	V      int    `json:"v"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// SealedKV encrypts every value of an inner KVStore at rest. Keys stay in
// clear and are bound to their value as associated data, so a value cannot
// be moved to another key.
type SealedKV struct {
	inner domain.KVStore

	mu     sync.RWMutex
	aead   cipher.AEAD
	key    []byte
	params sealParams
}

// NewSealedKV unlocks (or initialises) the sealed namespace of inner with
// passphrase. A wrong passphrase fails with ErrWrongPassphrase.
func NewSealedKV(inner domain.KVStore, passphrase string, cost ScryptParams) (*SealedKV, error) {
	raw, ok, err := inner.Get(sealParamsKey)
	if err != nil {
		return nil, err
	}

	var p sealParams
	if ok {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: seal params: %v", domain.ErrStorage, err)
		}
		if p.V > keystoreFormatVersion {
			return nil, fmt.Errorf("unsupported keystore version %d", p.V)
		}
	} else {
		salt, err := crypto.RandomBytes(16)
		if err != nil {
			return nil, err
		}
		p = sealParams{V: keystoreFormatVersion, Salt: salt, N: cost.N, R: cost.R, P: cost.P}
	}

	key, err := scrypt.Key([]byte(passphrase), p.Salt, p.N, p.R, p.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive store key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	s := &SealedKV{inner: inner, aead: aead, key: key, params: p}

	if ok {
		if _, err := s.open(sealParamsKey, p.Check); err != nil {
			crypto.Wipe(key)
			return nil, ErrWrongPassphrase
		}
		return s, nil
	}
	if err := s.writeParams(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SealedKV) writeParams() error {
	check, err := s.seal(sealParamsKey, []byte(sealCheck))
	if err != nil {
		return err
	}
	s.params.Check = check
	raw, err := json.Marshal(s.params)
	if err != nil {
		return err
	}
	return s.inner.Put(sealParamsKey, raw)
}

func (s *SealedKV) seal(key string, raw []byte) ([]byte, error) {
	nonce, err := crypto.RandomBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	aead := s.aead
	s.mu.RUnlock()
	if aead == nil {
		return nil, fmt.Errorf("%w: sealed store closed", domain.ErrStorage)
	}
	return json.Marshal(blob{
		V:      keystoreFormatVersion,
		Nonce:  nonce,
		Cipher: aead.Seal(nil, nonce, raw, []byte(key)),
	})
}

func (s *SealedKV) open(key string, b []byte) ([]byte, error) {
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, ErrWrongPassphrase
	}
	if bl.V > keystoreFormatVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", bl.V)
	}
	s.mu.RLock()
	aead := s.aead
	s.mu.RUnlock()
	if aead == nil {
		return nil, fmt.Errorf("%w: sealed store closed", domain.ErrStorage)
	}
	if len(bl.Nonce) != aead.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	pt, err := aead.Open(nil, bl.Nonce, bl.Cipher, []byte(key))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

// Get returns the decrypted value stored under key.
func (s *SealedKV) Get(key string) ([]byte, bool, error) {
	raw, ok, err := s.inner.Get(key)
	if err != nil || !ok {
		return nil, false, err
	}
	pt, err := s.open(key, raw)
	if err != nil {
		return nil, false, fmt.Errorf("open %s: %w", key, err)
	}
	return pt, true, nil
}

// Put encrypts value and stores it under key.
func (s *SealedKV) Put(key string, value []byte) error {
	if strings.HasPrefix(key, sealPrefix) {
		return fmt.Errorf("%w: key %q is reserved", domain.ErrStorage, key)
	}
	sealed, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Put(key, sealed)
}

// Delete removes key.
func (s *SealedKV) Delete(key string) error { return s.inner.Delete(key) }

// Keys lists stored keys with prefix, hiding the store's own bookkeeping.
func (s *SealedKV) Keys(prefix string) ([]string, error) {
	keys, err := s.inner.Keys(prefix)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if !strings.HasPrefix(k, sealPrefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

// Clear removes every value sealed by this store. Plain values sharing the
// inner store are left alone, and the namespace stays unlocked.
func (s *SealedKV) Clear() error {
	keys, err := s.inner.Keys("")
	if err != nil {
		return err
	}
	for _, k := range keys {
		if strings.HasPrefix(k, sealPrefix) {
			continue
		}
		raw, ok, err := s.inner.Get(k)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if _, err := s.open(k, raw); err != nil {
			continue
		}
		if err := s.inner.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Close wipes the derived key and closes the inner store.
func (s *SealedKV) Close() error {
	s.mu.Lock()
	if s.key != nil {
		crypto.Wipe(s.key)
		s.key = nil
		s.aead = nil
	}
	s.mu.Unlock()
	return s.inner.Close()
}

// Compile-time assertion that SealedKV implements domain.KVStore.
var _ domain.KVStore = (*SealedKV)(nil)
