// Package message encrypts, sends, loads and decrypts chat messages.
//
// Two cipher modes exist. Conversation messages are sealed with the
// conversation's symmetric key (secretbox) and readable by every
// participant. Pairwise messages are boxed from the sender's identity key to
// one recipient's public key; the sender cannot reopen them, so the
// plaintext of every sent message is kept in the sent-text cache.
//
// The Service is the pipeline on top: it resolves keys, stamps messages,
// writes them through the configured domain.MessageStore and decrypts
// loaded history concurrently. A message that fails to decrypt is shown
// with domain.SentinelText and never fails the batch.
package message
