// Package util contains any functions used across the application that don't match
// any other package
package util

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomToken returns n random bytes hex-encoded. Used for request IDs
// and OAuth state values
func RandomToken(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}
