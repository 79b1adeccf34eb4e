// Package fields provides field definition management API endpoints.
package fields

import (
	"regexp"
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

// ValidateName validates a field definition name.
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

// ValidateType validates a field type string.
func ValidateType(s string) (models.FieldType, error) {
	t, ok := models.ParseFieldType(strings.TrimSpace(strings.ToLower(s)))
	if !ok {
		return "", &ValidationError{Field: "type", Message: "type must be one of: text, textarea, number, boolean, date, select, multiselect"}
	}
	return t, nil
}

// ValidateOptions checks option constraints for the given type. Select and
// multiselect definitions should declare their option set up front.
func ValidateOptions(t models.FieldType, options []string) error {
	switch t {
	case models.FieldTypeSelect, models.FieldTypeMultiselect:
		seen := make(map[string]bool, len(options))
		for _, opt := range options {
			if strings.TrimSpace(opt) == "" {
				return &ValidationError{Field: "options", Message: "options must not be empty strings"}
			}
			if seen[opt] {
				return &ValidationError{Field: "options", Message: "options must be unique"}
			}
			seen[opt] = true
		}
	default:
		if len(options) > 0 {
			return &ValidationError{Field: "options", Message: "options are only allowed for select and multiselect fields"}
		}
	}
	return nil
}

// ValidateConstraints checks that the declared value constraints are
// internally consistent and apply to the field type.
func ValidateConstraints(t models.FieldType, v models.FieldValidation) error {
	switch t {
	case models.FieldTypeNumber:
		if v.MinLength != nil || v.MaxLength != nil || v.Regex != "" {
			return &ValidationError{Field: "validation", Message: "length and regex constraints do not apply to number fields"}
		}
		if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
			return &ValidationError{Field: "validation", Message: "min must not exceed max"}
		}
	case models.FieldTypeText, models.FieldTypeTextarea:
		if v.Min != nil || v.Max != nil {
			return &ValidationError{Field: "validation", Message: "numeric constraints do not apply to text fields"}
		}
		if v.MinLength != nil && *v.MinLength < 0 {
			return &ValidationError{Field: "validation", Message: "min_length must not be negative"}
		}
		if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
			return &ValidationError{Field: "validation", Message: "min_length must not exceed max_length"}
		}
		if v.Regex != "" {
			if _, err := regexp.Compile(v.Regex); err != nil {
				return &ValidationError{Field: "validation", Message: "regex is not a valid pattern"}
			}
		}
	default:
		if v.Min != nil || v.Max != nil || v.MinLength != nil || v.MaxLength != nil || v.Regex != "" {
			return &ValidationError{Field: "validation", Message: "value constraints do not apply to this field type"}
		}
	}
	return nil
}
