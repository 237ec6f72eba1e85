package util

import (
	"encoding/base64"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lowerHex = regexp.MustCompile(`^[0-9a-f]*$`)

func TestCryptoRandomBytes(t *testing.T) {
	a, err := CryptoRandomBytes(20)
	require.NoError(t, err)
	b, err := CryptoRandomBytes(20)
	require.NoError(t, err)

	assert.Len(t, a, 20)
	assert.NotEqual(t, a, b)
}

func TestCryptoRandomString(t *testing.T) {
	for _, n := range []int{1, 15, 16} {
		s, err := CryptoRandomString(n)
		require.NoError(t, err)
		assert.Len(t, s, n)
		assert.Regexp(t, lowerHex, s)
	}
}

func TestRandomURLString(t *testing.T) {
	a, err := RandomURLString(32)
	require.NoError(t, err)
	b, err := RandomURLString(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestSHA256Hex(t *testing.T) {
	tests := map[string]string{
		"":      "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		"hello": "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
	}
	for in, want := range tests {
		assert.Equal(t, want, SHA256Hex(in))
	}
	assert.NotEqual(t, SHA256Hex("token-a"), SHA256Hex("token-b"))
}
