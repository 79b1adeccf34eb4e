package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/slatehq/slate/internal/models"
)

func testUser() *models.User {
	return &models.User{
		ID:         "user-1",
		Name:       "Test User",
		Email:      "test@example.com",
		GlobalRole: models.GlobalRoleMember,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService([]byte("test-secret-key"), 15*time.Minute)
	user := testUser()

	token, err := svc.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateToken() returned empty token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}

	if claims.UserID != user.ID {
		t.Errorf("UserID = %s, want %s", claims.UserID, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("Email = %s, want %s", claims.Email, user.Email)
	}
	if claims.GlobalRole != user.GlobalRole {
		t.Errorf("GlobalRole = %s, want %s", claims.GlobalRole, user.GlobalRole)
	}
	if claims.Issuer != "slate" {
		t.Errorf("Issuer = %s, want slate", claims.Issuer)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := NewJWTService([]byte("correct-secret"), 15*time.Minute)
	other := NewJWTService([]byte("wrong-secret"), 15*time.Minute)

	token, err := svc.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := other.ValidateToken(token); err == nil {
		t.Error("ValidateToken() should fail with wrong secret")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewJWTService([]byte("test-secret"), -time.Minute)

	token, err := svc.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("ValidateToken() should fail for expired token")
	}
}

func TestValidateToken_Malformed(t *testing.T) {
	svc := NewJWTService([]byte("test-secret"), 15*time.Minute)

	tests := []string{
		"",
		"not-a-token",
		"a.b.c",
	}
	for _, tok := range tests {
		if _, err := svc.ValidateToken(tok); err == nil {
			t.Errorf("ValidateToken(%q) should fail", tok)
		}
	}
}

func TestValidateToken_TamperedPayload(t *testing.T) {
	svc := NewJWTService([]byte("test-secret"), 15*time.Minute)

	token, err := svc.GenerateToken(testUser())
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("token has %d parts, want 3", len(parts))
	}
	tampered := parts[0] + ".eyJ1aWQiOiJhdHRhY2tlciJ9." + parts[2]

	if _, err := svc.ValidateToken(tampered); err == nil {
		t.Error("ValidateToken() should fail for tampered payload")
	}
}
