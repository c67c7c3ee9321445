package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewSessionToken returns an opaque 64-character hex token for the server-side
// session store.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
