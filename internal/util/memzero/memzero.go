// Package memzero wipes secret buffers once they are no longer needed.
package memzero

import "github.com/awnumar/memguard"

// Zero overwrites each buffer with zeros.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		if len(b) > 0 {
			memguard.WipeBytes(b)
		}
	}
}
