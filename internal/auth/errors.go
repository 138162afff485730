package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when an API key does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenInvalid is returned for malformed, forged or expired tokens.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrInvalidHash is returned when a stored key hash cannot be parsed.
	ErrInvalidHash = errors.New("invalid key hash")
)
