package random

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Hex returns n random bytes hex-encoded.
func Hex(n int) (string, error) {
	b, err := read(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// URLToken returns n random bytes as unpadded base64url, safe for query strings.
func URLToken(n int) (string, error) {
	b, err := read(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func read(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("random: length must be positive, got %d", n)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}
	return b, nil
}
