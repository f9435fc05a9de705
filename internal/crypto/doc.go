// Package crypto exposes the minimal primitives used by chatseal.
//
// Contents
//
//   - X25519 key pairs (GenerateKeyPair, PublicFromPrivate)
//   - Authenticated public-key encryption between two parties (Box, OpenBox)
//   - Anonymous sealed boxes to a single recipient (SealAnonymous,
//     OpenAnonymous)
//   - Symmetric authenticated encryption (SecretBox, OpenSecretBox)
//   - Randomness (RandomBytes, NewNonce, NewSymmetricKey)
//   - Standard base64 with padding (B64, FromB64, DecodeKey)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//   - Session custody of a private key in locked memory (Keyring)
//
// # Notes
//
// Key material is passed as the fixed-size array types defined in
// internal/domain. Random-source failures are reported as
// domain.ErrPrimitiveUnavailable and authentication failures as
// domain.ErrDecryptionFailed.
package crypto
