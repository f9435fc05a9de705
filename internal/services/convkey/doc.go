// Package convkey manages per-conversation symmetric keys.
//
// A conversation key is minted once by whoever sets the conversation up,
// sealed to every participant's public key and stored on the server as one
// record per participant. Each participant later fetches and unseals only
// their own record. Unsealed keys are cached in memory for the session.
package convkey
