package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// CryptoRandomBytes reads length bytes from crypto/rand.
func CryptoRandomBytes(length int64) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// CryptoRandomString returns a random lowercase hex string of the given length.
func CryptoRandomString(length int) (string, error) {
	buf, err := CryptoRandomBytes(int64((length + 1) / 2))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf)[:length], nil
}

// RandomURLString returns n random bytes encoded as unpadded base64url.
func RandomURLString(n int64) (string, error) {
	buf, err := CryptoRandomBytes(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SHA256Hex hashes s. Only used on high-entropy values, so no salt.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
