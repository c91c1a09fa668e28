package app

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// NewClientToken returns the opaque cookie value for a new browser client
// and the id it is stored under. Only the id reaches storage.
func NewClientToken() (raw string, id string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, ClientID(raw), nil
}

func ClientID(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ValidToken rejects cookie values that could not have come from
// NewClientToken.
func ValidToken(raw string) bool {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	return err == nil && len(b) == 32
}
