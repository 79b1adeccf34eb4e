// Package groups provides group management API endpoints.
package groups

import (
	"strings"
)

// ValidationError contains validation error details.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateName validates a group name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) > 100 {
		return &ValidationError{Field: "name", Message: "name must be at most 100 characters"}
	}
	return nil
}

// ValidateDescription validates a group description.
func ValidateDescription(description string) error {
	if len(description) > 500 {
		return &ValidationError{Field: "description", Message: "description must be at most 500 characters"}
	}
	return nil
}
