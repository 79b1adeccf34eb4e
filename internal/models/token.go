package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// refreshTokenBytes is the entropy of a freshly minted refresh token.
const refreshTokenBytes = 32

// RefreshToken is the stored half of a refresh credential. Only the SHA-256
// hash is persisted; the plaintext exists once, in the login response.
type RefreshToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// NewRefreshToken mints a refresh token for the user. The returned string is
// the plaintext to hand to the client; the model holds only its hash.
func NewRefreshToken(userID string, ttl time.Duration) (*RefreshToken, string, error) {
	raw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)

	now := time.Now()
	token := &RefreshToken{
		UserID:    userID,
		TokenHash: HashToken(plain),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	return token, plain, nil
}

// HashToken maps a plaintext token to its storage form.
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// IsExpired reports whether the token's lifetime has passed.
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid reports whether the token can still be redeemed.
func (t *RefreshToken) IsValid() bool {
	return !t.Revoked && !t.IsExpired()
}
