package app

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"chatseal/internal/domain"
	"chatseal/internal/relay"
	identitysvc "chatseal/internal/services/identity"
	"chatseal/internal/store"
)

// Wire bundles the local stores and the relay client for the CLI. It is
// user-independent; Login scopes it to one identity.
type Wire struct {
	Config Config
	Log    logrus.FieldLogger

	KV       domain.KVStore // plain engine; holds the ledger
	Sealed   *store.SealedKV
	Vault    *store.Vault
	PeerKeys *store.PeerKeyCache
	SentText *store.SentTextCache
	Ledger   *store.Ledger
	Relay    *relay.HTTP
	Messages domain.MessageStore
	Identity *identitysvc.Service
	HTTP     *http.Client
}

// NewWire constructs the dependency graph from cfg. passphrase unlocks the
// encrypted part of the local store.
func NewWire(cfg Config, passphrase string, log logrus.FieldLogger) (*Wire, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kv, err := store.OpenBadger(store.BadgerConfig{
		Path:       filepath.Join(cfg.Home, "db"),
		InMemory:   cfg.InMemory,
		QuotaBytes: cfg.StorageQuotaBytes,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	// Keys, peer keys and sent plaintext are sealed at rest. The ledger only
	// holds ciphertext and lives on the plain engine.
	sealed, err := store.NewSealedKV(kv, passphrase, cfg.scrypt())
	if err != nil {
		return nil, errors.Join(err, kv.Close())
	}

	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	rc := relay.NewHTTP(cfg.RelayURL, httpClient, log)

	vault := store.NewVault(sealed, log)
	ledger := store.NewLedger(kv, log, store.WithLedgerMaxEntries(cfg.LedgerMaxEntries))

	var messages domain.MessageStore = relay.MessageStore{Remote: rc, Limit: cfg.MessageLimit}
	if cfg.MessageStorage == StorageLocal {
		messages = ledger
	}

	return &Wire{
		Config:   cfg,
		Log:      log,
		KV:       kv,
		Sealed:   sealed,
		Vault:    vault,
		PeerKeys: store.NewPeerKeyCache(sealed, log),
		SentText: store.NewSentTextCache(sealed, log),
		Ledger:   ledger,
		Relay:    rc,
		Messages: messages,
		Identity: identitysvc.New(vault, rc, log),
		HTTP:     httpClient,
	}, nil
}

// Close wipes the store key and closes the database.
func (w *Wire) Close() error {
	return w.Sealed.Close()
}
