package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slatehq/slate/internal/api/auth"
	"github.com/slatehq/slate/internal/models"
)

func TestJWTAuth_ValidToken(t *testing.T) {
	secret := []byte("test-secret-key-32-bytes-long!!")
	jwtService := auth.NewJWTService(secret, 15*time.Minute)

	user := &models.User{
		ID:         "user-123",
		Email:      "test@example.com",
		GlobalRole: models.GlobalRoleAdmin,
	}

	token, err := jwtService.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	var gotUserID, gotEmail string
	var gotRole models.GlobalRole
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
		gotEmail = GetEmail(r.Context())
		gotRole = GetGlobalRole(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	wrapped := JWTAuth(jwtService)(handler)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotUserID != user.ID {
		t.Errorf("UserID = %q, want %q", gotUserID, user.ID)
	}
	if gotEmail != user.Email {
		t.Errorf("Email = %q, want %q", gotEmail, user.Email)
	}
	if gotRole != user.GlobalRole {
		t.Errorf("GlobalRole = %q, want %q", gotRole, user.GlobalRole)
	}
}

func TestJWTAuth_MissingToken(t *testing.T) {
	secret := []byte("test-secret-key-32-bytes-long!!")
	jwtService := auth.NewJWTService(secret, 15*time.Minute)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	wrapped := JWTAuth(jwtService)(handler)

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	secret := []byte("test-secret-key-32-bytes-long!!")
	jwtService := auth.NewJWTService(secret, 15*time.Minute)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	wrapped := JWTAuth(jwtService)(handler)

	tests := []struct {
		name   string
		header string
	}{
		{"invalid format", "NotBearer token"},
		{"invalid token", "Bearer invalid-token"},
		{"empty bearer", "Bearer "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", tc.header)
			rec := httptest.NewRecorder()

			wrapped.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestJWTAuth_ExpiredToken(t *testing.T) {
	secret := []byte("test-secret-key-32-bytes-long!!")
	jwtService := auth.NewJWTService(secret, 1*time.Millisecond)

	user := &models.User{
		ID:         "user-123",
		Email:      "test@example.com",
		GlobalRole: models.GlobalRoleMember,
	}

	token, err := jwtService.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	wrapped := JWTAuth(jwtService)(handler)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestContextHelpers_Empty(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	ctx := req.Context()

	if got := GetUserID(ctx); got != "" {
		t.Errorf("GetUserID() = %q, want empty", got)
	}
	if got := GetEmail(ctx); got != "" {
		t.Errorf("GetEmail() = %q, want empty", got)
	}
	if got := GetGlobalRole(ctx); got != "" {
		t.Errorf("GetGlobalRole() = %q, want empty", got)
	}
	if got := GetClaims(ctx); got != nil {
		t.Errorf("GetClaims() = %v, want nil", got)
	}
}
