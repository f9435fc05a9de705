// Package relay provides the HTTP implementation of domain.RemoteStore used
// by chatseal.
//
// The relay is untrusted. It stores published public keys, conversations
// and their participant lists, sealed conversation key records, and
// encrypted messages. It never sees plaintext or private keys.
//
// Supported operations include:
//   - Publishing and fetching profile public keys.
//   - Creating and fetching conversations, together with their sealed keys.
//   - Storing sealed key records and fetching the caller's own record.
//   - Storing and listing encrypted messages.
//   - Subscribing to new messages of a conversation as server-sent events.
//
// All requests are JSON over HTTP and accept a context for cancellation and
// deadlines. Non-2xx statuses are returned as *StatusError carrying the HTTP
// method, full URL, and status text; 404 and 409 match domain.ErrNotFound and
// domain.ErrConflict under errors.Is.
package relay
