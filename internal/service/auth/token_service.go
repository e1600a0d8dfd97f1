// Package auth provides session token issuance/validation and password
// hashing for the API. It owns no user records; those live in the user store.
package auth

import (
	"context"
	"time"

	"github.com/babelpdf/babelpdf-api/internal/domain"
)

// Claims carries the identity attached to a validated session token.
type Claims struct {
	Username  string
	IsAdmin   bool
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues, validates and revokes bearer session tokens.
type TokenService interface {
	// Generate creates a signed session token for the given user.
	Generate(ctx context.Context, user *domain.User) (string, error)

	// Validate checks a token's signature, expiry and revocation state and
	// returns its claims.
	Validate(ctx context.Context, token string) (*Claims, error)

	// Revoke invalidates a previously issued token. Validating the token
	// afterwards returns ErrRevokedToken until the token would have expired
	// anyway.
	Revoke(ctx context.Context, token string) error
}
