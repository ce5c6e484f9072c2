package authservice

import "github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"

var (
	// ErrMissingToken is returned when no bearer token was presented.
	ErrMissingToken = apperrors.Authentication("missing bearer token")

	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = apperrors.Authentication("invalid authentication token")

	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = apperrors.Authentication("authentication token has expired")
)
