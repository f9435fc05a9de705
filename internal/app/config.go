package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"chatseal/internal/domain"
	"chatseal/internal/store"
)

// Message storage strategies.
const (
	StorageRemote = "remote"
	StorageLocal  = "local"
)

const (
	ConfigFile = "config.yaml"

	defaultRelayURL    = "http://127.0.0.1:8080"
	defaultHTTPTimeout = 15 * time.Second
	defaultLogLevel    = "info"
)

// Config holds runtime options, read from config.yaml and overridden by flags.
type Config struct {
	Home string `yaml:"-"` // config directory, e.g. $HOME/.chatseal

	RelayURL          string        `yaml:"relay_url"`
	UserID            domain.UserID `yaml:"user_id"`
	MessageStorage    string        `yaml:"message_storage"`
	StorageQuotaBytes int64         `yaml:"storage_quota_bytes"`
	LedgerMaxEntries  int           `yaml:"ledger_max_entries"`
	MessageLimit      int           `yaml:"message_limit"`
	SentinelText      string        `yaml:"sentinel_text"`
	LogLevel          string        `yaml:"log_level"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`

	// Scrypt cost for the local key store. Zero fields use the defaults.
	ScryptN int `yaml:"scrypt_n"`
	ScryptR int `yaml:"scrypt_r"`
	ScryptP int `yaml:"scrypt_p"`

	// InMemory keeps all local state in memory; nothing is written to Home.
	InMemory bool         `yaml:"-"`
	HTTP     *http.Client `yaml:"-"` // optional; built from HTTPTimeout when nil
}

// DefaultHome returns $HOME/.chatseal.
func DefaultHome() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".chatseal")
	}
	return ".chatseal"
}

// LoadConfig reads home/config.yaml. A missing file yields the defaults.
func LoadConfig(home string) (Config, error) {
	cfg := Config{Home: home}
	data, err := os.ReadFile(filepath.Join(home, ConfigFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", ConfigFile, err)
		}
		cfg.Home = home
	}
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

// Save writes the config to Home/config.yaml.
func (c Config) Save() error {
	if err := os.MkdirAll(c.Home, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.Home, ConfigFile), data, 0o600)
}

func (c *Config) applyDefaults() {
	if c.RelayURL == "" {
		c.RelayURL = defaultRelayURL
	}
	if c.MessageStorage == "" {
		c.MessageStorage = StorageRemote
	}
	if c.LedgerMaxEntries <= 0 {
		c.LedgerMaxEntries = store.DefaultLedgerMaxEntries
	}
	if c.SentinelText == "" {
		c.SentinelText = domain.SentinelText
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	switch c.MessageStorage {
	case StorageRemote, StorageLocal:
	default:
		return fmt.Errorf("message_storage must be %q or %q, got %q", StorageRemote, StorageLocal, c.MessageStorage)
	}
	if c.StorageQuotaBytes < 0 {
		return fmt.Errorf("storage_quota_bytes must not be negative")
	}
	return nil
}

func (c Config) scrypt() store.ScryptParams {
	p := store.DefaultScryptParams()
	if c.ScryptN > 0 {
		p.N = c.ScryptN
	}
	if c.ScryptR > 0 {
		p.R = c.ScryptR
	}
	if c.ScryptP > 0 {
		p.P = c.ScryptP
	}
	return p
}
