package crypto

import "io"

// SwapRandReader replaces the random source until the returned func is called.
func SwapRandReader(r io.Reader) (restore func()) {
	old := randReader
	randReader = r
	return func() { randReader = old }
}
