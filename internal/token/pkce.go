package token

import (
	"crypto/subtle"

	"golang.org/x/oauth2"
)

// PKCEMethodS256 is the only supported code_challenge_method.
const PKCEMethodS256 = "S256"

// ValidCodeVerifier reports whether v has the RFC 7636 length (43..128) and
// uses only unreserved characters.
func ValidCodeVerifier(v string) bool {
	if len(v) < 43 || len(v) > 128 {
		return false
	}
	for _, c := range []byte(v) {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-', c == '.', c == '_', c == '~':
		default:
			return false
		}
	}
	return true
}

// VerifyPKCE reports whether verifier hashes to challenge under method.
// Only S256 is accepted and the comparison is constant-time.
func VerifyPKCE(verifier, challenge, method string) bool {
	if method != PKCEMethodS256 || challenge == "" || !ValidCodeVerifier(verifier) {
		return false
	}
	computed := oauth2.S256ChallengeFromVerifier(verifier)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}
