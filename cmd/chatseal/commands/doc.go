// Package commands defines the chatseal CLI.
//
// Commands
//
//   - init         Create (or load) your identity and publish its public key
//   - fingerprint  Print your or a peer's key fingerprint
//   - export-key   Write an unencrypted backup of your private key
//   - import-key   Restore a private key from a backup
//   - create       Start a conversation and distribute its key
//   - conversations  List your conversations
//   - setup-key    Provision a key for an existing conversation
//   - send         Encrypt with the conversation key and send
//   - send-direct  Encrypt for a single participant and send
//   - read         Load and decrypt a conversation
//   - watch        Print new messages as they arrive
//   - logout       Remove your keys and cached secrets from this device
//
// # Implementation
//
// The root command loads config.yaml from --home, applies flag overrides and
// opens the local store before any subcommand runs. Commands that act as a
// user open an app.Session, which runs identity setup first.
package commands
