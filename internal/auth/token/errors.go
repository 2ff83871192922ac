package token

import "errors"

var (
	// ErrInvalidSignature is returned when a token does not verify with the
	// secret of the requested kind.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrExpired is returned when the embedded expiry has passed.
	ErrExpired = errors.New("token expired")

	// ErrMalformed is returned when the token structure cannot be parsed.
	ErrMalformed = errors.New("malformed token")

	// ErrConfig is returned for invalid codec configuration.
	ErrConfig = errors.New("invalid token config")
)
