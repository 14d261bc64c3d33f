package uid

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateGameID returns a fresh UUID string for a games row
func GenerateGameID() string {
	return uuid.NewString()
}

// IsGameID reports whether s parses as a game identifier.
func IsGameID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// GenerateRoomCode draws an uppercase alphanumeric code of the given length.
func GenerateRoomCode(length int) string {
	code := make([]byte, length)
	max := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand never fails on supported platforms
			panic(err)
		}
		code[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(code)
}
