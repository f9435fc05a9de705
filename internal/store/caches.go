package store

import (
	"github.com/sirupsen/logrus"

	"chatseal/internal/domain"
)

const (
	peerKeyPrefix  = "peerkey/"
	sentTextPrefix = "senttext/"
)

// PeerKeyCache remembers peers' public keys per conversation.
type PeerKeyCache struct {
	kv  domain.KVStore
	log logrus.FieldLogger
}

// NewPeerKeyCache returns a cache over kv.
func NewPeerKeyCache(kv domain.KVStore, log logrus.FieldLogger) *PeerKeyCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PeerKeyCache{kv: kv, log: log}
}

func peerKeyName(conversationID domain.ConversationID, peerID domain.UserID) string {
	return peerKeyPrefix + string(conversationID) + "/" + string(peerID)
}

// SavePeerPublicKey records peerID's public key for the conversation.
func (c *PeerKeyCache) SavePeerPublicKey(conversationID domain.ConversationID, peerID domain.UserID, publicKey string) {
	if err := c.kv.Put(peerKeyName(conversationID, peerID), []byte(publicKey)); err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"peer_id":         peerID,
		}).Warn("cache: save peer key failed")
	}
}

// PeerPublicKey returns the cached key, if any.
func (c *PeerKeyCache) PeerPublicKey(conversationID domain.ConversationID, peerID domain.UserID) (string, bool) {
	v, ok, err := c.kv.Get(peerKeyName(conversationID, peerID))
	if err != nil {
		c.log.WithError(err).WithField("peer_id", peerID).Debug("cache: read peer key failed")
		return "", false
	}
	return string(v), ok
}

// Clear forgets every cached peer key.
func (c *PeerKeyCache) Clear() error { return deletePrefix(c.kv, peerKeyPrefix) }

// SentTextCache remembers the plaintext of messages sent from this device,
// since pairwise ciphertext cannot be reopened by its sender.
type SentTextCache struct {
	kv  domain.KVStore
	log logrus.FieldLogger
}

// NewSentTextCache returns a cache over kv.
func NewSentTextCache(kv domain.KVStore, log logrus.FieldLogger) *SentTextCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SentTextCache{kv: kv, log: log}
}

// SaveSentText records the plaintext of message id.
func (c *SentTextCache) SaveSentText(id domain.MessageID, text string) {
	if err := c.kv.Put(sentTextPrefix+string(id), []byte(text)); err != nil {
		c.log.WithError(err).WithField("message_id", id).Warn("cache: save sent text failed")
	}
}

// SentText returns the cached plaintext, if any.
func (c *SentTextCache) SentText(id domain.MessageID) (string, bool) {
	v, ok, err := c.kv.Get(sentTextPrefix + string(id))
	if err != nil {
		c.log.WithError(err).WithField("message_id", id).Debug("cache: read sent text failed")
		return "", false
	}
	return string(v), ok
}

// Clear forgets every cached plaintext.
func (c *SentTextCache) Clear() error { return deletePrefix(c.kv, sentTextPrefix) }

func deletePrefix(kv domain.KVStore, prefix string) error {
	keys, err := kv.Keys(prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := kv.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Compile-time assertions that the caches implement their domain interfaces.
var (
	_ domain.PeerKeyCache  = (*PeerKeyCache)(nil)
	_ domain.SentTextCache = (*SentTextCache)(nil)
)
