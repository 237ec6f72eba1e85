package services

import "errors"

// Protocol errors. They map onto the OAuth error codes of the same name and
// are safe to show to the client.
var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidRedirectURI      = errors.New("invalid redirect_uri")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrUnauthorizedClient      = errors.New("unauthorized_client")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
)

// ErrForbidden is the only error a grant returns for a failed security check.
// The concrete reason is logged but never reaches the client.
var ErrForbidden = errors.New("forbidden")

type forbiddenError struct {
	reason string
}

func (e *forbiddenError) Error() string {
	return "forbidden: " + e.reason
}

func (e *forbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

func forbidden(reason string) error {
	return &forbiddenError{reason: reason}
}

// ForbiddenReason returns the internal reason carried by a forbidden error.
func ForbiddenReason(err error) (string, bool) {
	var fe *forbiddenError
	if errors.As(err, &fe) {
		return fe.reason, true
	}
	return "", false
}
