// Package identity manages users' long-term X25519 identity key pairs.
//
// It generates and validates keys, runs the setup flow that ties the local
// vault to the published profile, and resolves peers' public keys through
// the peer key cache and the profile directory.
package identity
