package token

import (
	"fmt"

	"github.com/go-authgate/identity/internal/util"
)

// opaqueBytes is the entropy of authorization codes and refresh tokens.
const opaqueBytes = 32

// GenerateOpaque returns a new random handle for a code or refresh token.
// Only its ReferenceID is stored.
func GenerateOpaque() (string, error) {
	raw, err := util.RandomURLString(opaqueBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return raw, nil
}

// ReferenceID is the lookup key persisted for a raw token value.
func ReferenceID(raw string) string {
	return util.SHA256Hex(raw)
}
