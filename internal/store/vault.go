package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"chatseal/internal/crypto"
	"chatseal/internal/domain"
)

const vaultPrefix = "vault/"

// Vault persists one identity private key record per user.
//
// Give it a SealedKV so records are encrypted at rest. Storage failures are
// returned wrapped in domain.ErrStorage; the only tolerated failure is the
// lastAccessed refresh on Get, which is logged.
type Vault struct {
	kv  domain.KVStore
	log logrus.FieldLogger
	now func() time.Time

	mu sync.Mutex
}

// NewVault returns a Vault over kv. A nil logger uses the standard logger.
func NewVault(kv domain.KVStore, log logrus.FieldLogger) *Vault {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Vault{kv: kv, log: log, now: time.Now}
}

func vaultKey(userID domain.UserID) string { return vaultPrefix + string(userID) }

func (v *Vault) load(userID domain.UserID) (domain.StoredPrivateKeyRecord, bool, error) {
	var rec domain.StoredPrivateKeyRecord
	raw, ok, err := v.kv.Get(vaultKey(userID))
	if err != nil {
		return rec, false, storageErr("vault get "+string(userID), err)
	}
	if !ok {
		return rec, false, nil
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, false, storageErr("vault decode "+string(userID), err)
	}
	return rec, true, nil
}

func (v *Vault) put(rec domain.StoredPrivateKeyRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	defer crypto.Wipe(raw)
	if err := v.kv.Put(vaultKey(rec.UserID), raw); err != nil {
		return storageErr("vault put "+string(rec.UserID), err)
	}
	return nil
}

// Save upserts userID's private key. An existing record keeps its CreatedAt.
func (v *Vault) Save(userID domain.UserID, privateKey string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	existing, ok, err := v.load(userID)
	if err != nil {
		return err
	}
	now := v.now().UTC()
	rec := domain.StoredPrivateKeyRecord{
		UserID:       userID,
		PrivateKey:   privateKey,
		CreatedAt:    now,
		LastAccessed: now,
	}
	if ok {
		rec.CreatedAt = existing.CreatedAt
	}
	return v.put(rec)
}

// Get returns userID's private key and refreshes its LastAccessed stamp.
//
// The refresh happens before returning so that a concurrent Delete cannot be
// undone by a late write.
func (v *Vault) Get(userID domain.UserID) (string, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	rec, ok, err := v.load(userID)
	if err != nil || !ok {
		return "", false, err
	}
	rec.LastAccessed = v.now().UTC()
	if err := v.put(rec); err != nil {
		v.log.WithError(err).WithField("user_id", userID).Warn("vault: refresh lastAccessed failed")
	}
	return rec.PrivateKey, true, nil
}

// Record returns the full stored record without touching LastAccessed.
func (v *Vault) Record(userID domain.UserID) (domain.StoredPrivateKeyRecord, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.load(userID)
}

// Delete removes userID's record; a missing record is not an error.
func (v *Vault) Delete(userID domain.UserID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.kv.Delete(vaultKey(userID)); err != nil {
		return storageErr("vault delete "+string(userID), err)
	}
	return nil
}

// ExportBackup renders userID's key as a portable JSON backup document.
func (v *Vault) ExportBackup(userID domain.UserID) ([]byte, error) {
	v.mu.Lock()
	rec, ok, err := v.load(userID)
	v.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no private key stored for %s", domain.ErrNotFound, userID)
	}
	return json.MarshalIndent(domain.BackupDocument{
		UserID:     userID,
		PrivateKey: rec.PrivateKey,
		ExportedAt: v.now().UTC(),
		Warning:    domain.BackupWarning,
	}, "", "  ")
}

// ImportBackup validates a backup document and upserts its key.
// It returns the user the key belongs to.
func (v *Vault) ImportBackup(b []byte) (domain.UserID, error) {
	var doc domain.BackupDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidBackupFormat, err)
	}
	if doc.UserID == "" || doc.PrivateKey == "" {
		return "", fmt.Errorf("%w: userId and privateKey are required", domain.ErrInvalidBackupFormat)
	}
	priv, err := crypto.DecodePrivate(doc.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidBackupFormat, err)
	}
	crypto.Wipe(priv[:])

	if err := v.Save(doc.UserID, doc.PrivateKey); err != nil {
		return "", err
	}
	return doc.UserID, nil
}

// Compile-time assertion that Vault implements domain.PrivateKeyVault.
var _ domain.PrivateKeyVault = (*Vault)(nil)
