package random

import (
	"crypto/rand"
	"encoding/hex"
)

// Bytes returns n bytes read from crypto/rand. It panics if the system
// randomness source fails.
func Bytes(n int) []byte {
	b := make([]byte, n)

	_, err := rand.Read(b)
	if err != nil {
		panic(err)
	}

	return b
}

// String returns the hex encoding of n random bytes, so the result is 2n
// characters long.
func String(n int) string {
	return hex.EncodeToString(Bytes(n))
}

// Token returns an opaque 256-bit hex token suitable for session ids.
func Token() string {
	return String(32)
}
