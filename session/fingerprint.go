package session

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// fingerprint identifies a token in logs without revealing it.
func fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}
