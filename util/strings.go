package util

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomString32 returns a 32 bytes long URL-safe string with 24 bytes (192 bits) of entropy.
func RandomString32() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil // 24 bytes encode to exactly 32 characters
}
