// Package relayserver implements the untrusted chatseal relay.
//
// HTTP API
//
//	PUT  /profiles/{user}                    { "publicKey": "..." }
//	GET  /profiles/{user}
//	POST /conversations                      { "conversation": {...}, "keys": [...] }
//	GET  /conversations/{id}
//	GET  /users/{user}/conversations
//	POST /conversations/{id}/keys            [ sealed key records ]
//	GET  /conversations/{id}/keys/{user}
//	POST /conversations/{id}/messages        encrypted message
//	GET  /conversations/{id}/messages?limit=N
//	GET  /conversations/{id}/events          server-sent events, one message per event
//	GET  /health
//
// Behaviour
//
//   - Only ciphertext, public keys and sealed key records are stored.
//   - A sealed key record is written at most once per (conversation, user);
//     a batch containing an existing one is rejected whole with 409.
//   - Messages from non-participants, and pairwise messages to
//     non-participants, are rejected with 403.
//   - Errors are JSON objects { "error": "..." }.
//   - A lightweight access log records method, path, status, bytes and
//     duration for each request.
//
// Storage is pluggable (MemoryStore, PostgresStore) and so is fan-out of new
// messages to subscribers (MemoryNotifier, RedisNotifier).
package relayserver
