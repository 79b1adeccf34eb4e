package auth

import (
	"errors"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Str0ng!Passw0rd", false},
		{"too short", "Ab1!short", true},
		{"no uppercase", "weak!passw0rd", true},
		{"no lowercase", "WEAK!PASSW0RD", true},
		{"no digit", "Weak!Password", true},
		{"no special", "WeakPassw0rdX", true},
		{"empty", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidatePassword_AggregatesMessages(t *testing.T) {
	err := ValidatePassword("short")
	var verr *PasswordValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want PasswordValidationError", err)
	}
	// short, no upper, no digit, no special
	if len(verr.Messages) < 3 {
		t.Errorf("messages = %d, want multiple failures reported", len(verr.Messages))
	}
}

func TestValidatePasswordOrError(t *testing.T) {
	if err := ValidatePasswordOrError("Str0ng!Passw0rd"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidatePasswordOrError("weak"); err == nil {
		t.Error("expected error for weak password")
	}
}
