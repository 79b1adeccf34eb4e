// Package projects provides project management API endpoints. Per-project
// authorization decisions are delegated to the permissions engine.
package projects

import (
	"strings"

	"github.com/slatehq/slate/internal/models"
)

// ValidationError contains validation error details.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateName validates a project name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) > 200 {
		return &ValidationError{Field: "name", Message: "name must be at most 200 characters"}
	}
	return nil
}

// ValidateDescription validates a project description.
func ValidateDescription(description string) error {
	if len(description) > 2000 {
		return &ValidationError{Field: "description", Message: "description must be at most 2000 characters"}
	}
	return nil
}

// ValidateRole validates a project role string.
func ValidateRole(s string) (models.Role, error) {
	role, ok := models.ParseRole(strings.TrimSpace(strings.ToLower(s)))
	if !ok {
		return "", &ValidationError{Field: "role", Message: "role must be one of: viewer, editor, owner"}
	}
	return role, nil
}

// ValidateVisibility validates a visibility string.
func ValidateVisibility(s string) (models.Visibility, error) {
	v := models.Visibility(strings.TrimSpace(strings.ToLower(s)))
	if !v.Valid() {
		return "", &ValidationError{Field: "visibility", Message: "visibility must be one of: private, team, public"}
	}
	return v, nil
}
