package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/babelpdf/babelpdf-api/internal/config"
	"github.com/babelpdf/babelpdf-api/internal/domain"
	"github.com/babelpdf/babelpdf-api/internal/platform/logger"
)

// hmacTokenService implements TokenService using HMAC-SHA256 signed JWTs plus
// an in-memory revocation list so logout takes effect before expiry.
type hmacTokenService struct {
	signingKey    []byte
	tokenLifetime time.Duration
	timeFunc      func() time.Time // Injectable for testing
	clockSkew     time.Duration    // Allowed drift when validating time claims

	mu      sync.Mutex
	revoked map[string]time.Time // token ID -> expiry of the revoked token
}

// jwtSessionClaims defines the structure of the JWT claims we use.
type jwtSessionClaims struct {
	Username string `json:"sub_name"`
	IsAdmin  bool   `json:"adm"`
	jwt.RegisteredClaims
}

// Ensure hmacTokenService implements TokenService.
var _ TokenService = (*hmacTokenService)(nil)

// NewTokenService creates a new session token service using HMAC-SHA256 signing.
func NewTokenService(cfg config.AuthConfig) (TokenService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}

	return &hmacTokenService{
		signingKey:    []byte(cfg.JWTSecret),
		tokenLifetime: time.Duration(cfg.TokenLifetimeMinutes) * time.Minute,
		timeFunc:      time.Now,
		clockSkew:     2 * time.Minute,
		revoked:       make(map[string]time.Time),
	}, nil
}

// Generate creates a signed session token carrying the user's identity and
// admin flag.
func (s *hmacTokenService) Generate(ctx context.Context, user *domain.User) (string, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	claims := jwtSessionClaims{
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenLifetime)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		log.Error("failed to sign session token",
			"error", err,
			"username", user.Username)
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// Validate checks a session token and returns its claims if valid and not
// revoked.
func (s *hmacTokenService) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtSessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		parserOpts...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("token validation failed: token expired", "error", err)
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			log.Debug("token validation failed: token not yet valid", "error", err)
			return nil, ErrTokenNotYetValid
		default:
			log.Debug("token validation failed", "error", err)
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*jwtSessionClaims)
	if !ok || !token.Valid {
		log.Debug("token validation failed: invalid claims")
		return nil, ErrInvalidToken
	}

	if s.isRevoked(claims.ID, now) {
		log.Debug("token validation failed: token revoked",
			"username", claims.Username,
			"token_id", claims.ID)
		return nil, ErrRevokedToken
	}

	return &Claims{
		Username:  claims.Username,
		IsAdmin:   claims.IsAdmin,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke invalidates a token for the remainder of its lifetime. The token
// must still parse and verify; revoking garbage is rejected.
func (s *hmacTokenService) Revoke(ctx context.Context, tokenString string) error {
	claims, err := s.Validate(ctx, tokenString)
	if err != nil {
		// Revoking an already-revoked token is a no-op.
		if errors.Is(err, ErrRevokedToken) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[claims.TokenID] = claims.ExpiresAt
	s.sweepLocked(s.timeFunc())
	return nil
}

// isRevoked reports whether the token ID is on the revocation list and drops
// entries whose tokens have expired on their own.
func (s *hmacTokenService) isRevoked(tokenID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	_, revoked := s.revoked[tokenID]
	return revoked
}

// sweepLocked removes revocation entries for tokens that are past expiry.
// Callers must hold s.mu.
func (s *hmacTokenService) sweepLocked(now time.Time) {
	for id, exp := range s.revoked {
		if now.After(exp.Add(s.clockSkew)) {
			delete(s.revoked, id)
		}
	}
}
