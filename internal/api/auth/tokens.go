package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/slatehq/slate/internal/models"
	"github.com/slatehq/slate/internal/storage"
)

// TokenService issues, redeems, and revokes refresh tokens. Access tokens
// are stateless JWTs; refresh tokens are the only credential the server
// stores, and only as hashes.
type TokenService struct {
	store storage.Storage
	ttl   time.Duration
}

// NewTokenService creates a token service with the given refresh TTL.
func NewTokenService(store storage.Storage, ttl time.Duration) *TokenService {
	return &TokenService{store: store, ttl: ttl}
}

// Issue mints and persists a refresh token for the user, returning the
// plaintext for the client.
func (s *TokenService) Issue(ctx context.Context, userID string) (string, error) {
	token, plain, err := models.NewRefreshToken(userID, s.ttl)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.store.Tokens().Create(ctx, token); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return plain, nil
}

// Redeem resolves a plaintext refresh token to its user. It fails on
// unknown, expired, and revoked tokens alike, without distinguishing which.
func (s *TokenService) Redeem(ctx context.Context, plain string) (*models.User, error) {
	token, err := s.store.Tokens().GetByTokenHash(ctx, models.HashToken(plain))
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if token == nil || !token.IsValid() {
		return nil, fmt.Errorf("invalid refresh token")
	}

	user, err := s.store.Users().GetByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}
	return user, nil
}

// Revoke invalidates a single refresh token.
func (s *TokenService) Revoke(ctx context.Context, plain string) error {
	return s.store.Tokens().RevokeByTokenHash(ctx, models.HashToken(plain))
}

// RevokeAll invalidates every refresh token the user holds. Used on
// password change to force re-login everywhere.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	return s.store.Tokens().RevokeAllForUser(ctx, userID)
}

// Rotate issues a fresh token and revokes the old one. A failed revocation
// does not block the rotation; the old token still dies at its expiry.
func (s *TokenService) Rotate(ctx context.Context, oldPlain string, userID string) (string, error) {
	_ = s.Revoke(ctx, oldPlain)
	return s.Issue(ctx, userID)
}

// PurgeExpired deletes expired tokens and reports how many went.
func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.Tokens().DeleteExpired(ctx)
}

// TTL returns the refresh token time-to-live.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
