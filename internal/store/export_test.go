package store

import "time"

// SetVaultClock replaces the vault's time source.
func SetVaultClock(v *Vault, now func() time.Time) { v.now = now }
