package auth

import "errors"

// Token validation errors returned by TokenService implementations.
var (
	// ErrInvalidToken is returned when a token is malformed, has a bad
	// signature, or carries unusable claims.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token's expiry has passed.
	ErrExpiredToken = errors.New("token expired")

	// ErrTokenNotYetValid is returned when a token's NotBefore is in the future.
	ErrTokenNotYetValid = errors.New("token not yet valid")

	// ErrRevokedToken is returned when a token has been invalidated by logout.
	ErrRevokedToken = errors.New("token revoked")
)
