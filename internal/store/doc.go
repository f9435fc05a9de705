// Package store provides client-side persistence for chatseal.
//
// Everything sits on a domain.KVStore: BadgerKV on local disk, or MemoryKV
// for tests and throwaway sessions. On top of that:
//   - SealedKV encrypts values at rest under a key derived from the device
//     passphrase (scrypt + XChaCha20-Poly1305)
//   - Vault keeps one identity private key record per user
//   - PeerKeyCache and SentTextCache are advisory caches; failures read as
//     absent
//   - Ledger keeps per-conversation message history when messages are not
//     stored remotely
//
// All types are safe for concurrent use.
package store
