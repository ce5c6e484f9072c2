package authjwt

import "errors"

var (
	// ErrInvalidToken is returned when the token is malformed or carries no player.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")

	// ErrInvalidSignature is returned when the token signature or algorithm is wrong.
	ErrInvalidSignature = errors.New("invalid token signature")
)
