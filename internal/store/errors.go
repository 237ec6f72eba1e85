package store

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrUsernameConflict is returned when a username already exists
	ErrUsernameConflict = errors.New("username already exists")

	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrTokenAlreadyRedeemed is returned by RedeemToken when the token was no
	// longer valid at the time of the conditional update (0 rows updated).
	ErrTokenAlreadyRedeemed = errors.New("token already redeemed")
)

// translate maps gorm's not-found error onto ErrRecordNotFound and leaves
// every other error untouched.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}
