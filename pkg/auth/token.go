package auth

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// GenerateToken creates a cryptographically secure random token
func GenerateToken() string {
	bytes := make([]byte, 16) // 16 bytes = 128 bits
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// HashToken derives a fixed-size cache key from a bearer token so raw
// provider tokens never end up in Redis key names.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
