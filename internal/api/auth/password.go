package auth

import (
	"errors"
	"strings"
	"unicode"
)

const minPasswordLength = 12

const specialChars = "!@#$%^&*()-_=+[]{}|;:',.<>?/`~\"\\"

// PasswordValidationError aggregates every policy rule a candidate password
// breaks, so the client can fix them in one round trip.
type PasswordValidationError struct {
	Messages []string
}

func (e *PasswordValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// passwordRules are the character-class requirements. Length is checked
// separately since it looks at the whole string.
var passwordRules = []struct {
	match   func(rune) bool
	message string
}{
	{unicode.IsUpper, "password must contain at least 1 uppercase letter"},
	{unicode.IsLower, "password must contain at least 1 lowercase letter"},
	{unicode.IsDigit, "password must contain at least 1 digit"},
	{func(r rune) bool { return strings.ContainsRune(specialChars, r) },
		"password must contain at least 1 special character (!@#$%^&*...)"},
}

// ValidatePassword checks a candidate password against the policy: minimum
// length plus one character from each required class.
func ValidatePassword(password string) error {
	var messages []string

	if len(password) < minPasswordLength {
		messages = append(messages, "password must be at least 12 characters")
	}

	for _, rule := range passwordRules {
		if !strings.ContainsFunc(password, rule.match) {
			messages = append(messages, rule.message)
		}
	}

	if len(messages) > 0 {
		return &PasswordValidationError{Messages: messages}
	}
	return nil
}

// ValidatePasswordOrError collapses a policy failure to its first message,
// the form handlers return to clients.
func ValidatePasswordOrError(password string) error {
	err := ValidatePassword(password)
	if err == nil {
		return nil
	}
	var policyErr *PasswordValidationError
	if errors.As(err, &policyErr) {
		return errors.New(policyErr.Messages[0])
	}
	return err
}
