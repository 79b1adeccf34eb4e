// Package fields implements validation of untyped custom field values
// against field definitions created at runtime.
package fields

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/slatehq/slate/internal/models"
)

// Registry lists the known field definitions. Unknown references are
// checked against every definition, active or not; the required-field pass
// considers only active ones.
type Registry interface {
	List(ctx context.Context) ([]*models.FieldDefinition, error)
}

// InvalidFieldError means a value referenced a field that has no definition.
type InvalidFieldError struct {
	Ref string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid field: %s", e.Ref)
}

// FieldError is a single validation failure attributed to a field key.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every validation failure so the caller gets a
// complete correction set in one round trip.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(msgs, "; ")
}

// Validator type-checks field values against the current definitions.
// The same code path serves the dry-run endpoint and the write path, so
// both produce identical accept/reject decisions.
type Validator struct {
	registry Registry
}

// NewValidator creates a field value validator.
func NewValidator(registry Registry) *Validator {
	return &Validator{registry: registry}
}

// ValidateValues verifies the supplied (field, value) pairs against the
// current definitions and returns them with the field reference normalized
// to the definition id. Values pass through unchanged: validation rejects,
// it never coerces.
//
// A pair may reference a field by id or by normalized key. Required-field
// violations are aggregated across all active definitions before any
// per-value check runs.
func (v *Validator) ValidateValues(ctx context.Context, pairs []models.FieldValue) ([]models.FieldValue, error) {
	defs, err := v.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load field definitions: %w", err)
	}

	byRef := make(map[string]*models.FieldDefinition, len(defs)*2)
	for _, d := range defs {
		byRef[d.ID] = d
		byRef[d.Key] = d
	}

	supplied := make(map[string]any, len(pairs))
	for _, p := range pairs {
		if d, ok := byRef[p.FieldID]; ok {
			supplied[d.ID] = p.Value
		}
	}

	// Missing-required pass: collect every violation, no short-circuit.
	var verr ValidationError
	for _, d := range defs {
		if !d.Active || !d.Required {
			continue
		}
		if isEmpty(supplied[d.ID]) {
			verr.Errors = append(verr.Errors, FieldError{Field: d.Key, Message: "required field is missing"})
		}
	}
	if len(verr.Errors) > 0 {
		return nil, &verr
	}

	normalized := make([]models.FieldValue, 0, len(pairs))
	for _, p := range pairs {
		def, ok := byRef[p.FieldID]
		if !ok {
			return nil, &InvalidFieldError{Ref: p.FieldID}
		}
		// Absence is only an error for required fields, handled above.
		if p.Value != nil {
			if msg := checkValue(def, p.Value); msg != "" {
				verr.Errors = append(verr.Errors, FieldError{Field: def.Key, Message: msg})
			}
		}
		normalized = append(normalized, models.FieldValue{FieldID: def.ID, Value: p.Value})
	}
	if len(verr.Errors) > 0 {
		return nil, &verr
	}
	return normalized, nil
}

// checkValue dispatches type-specific validation. Returns an empty string
// when the value is acceptable.
func checkValue(def *models.FieldDefinition, value any) string {
	switch def.Type {
	case models.FieldTypeText, models.FieldTypeTextarea:
		return checkText(def, value)
	case models.FieldTypeNumber:
		return checkNumber(def, value)
	case models.FieldTypeBoolean:
		if _, ok := value.(bool); !ok {
			return "value must be a boolean"
		}
		return ""
	case models.FieldTypeDate:
		return checkDate(value)
	case models.FieldTypeSelect:
		return checkSelect(def, value)
	case models.FieldTypeMultiselect:
		return checkMultiselect(def, value)
	}
	return "unknown field type"
}

func checkText(def *models.FieldDefinition, value any) string {
	s, ok := value.(string)
	if !ok {
		return "value must be a string"
	}
	length := utf8.RuneCountInString(s)
	if def.Validation.MinLength != nil && length < *def.Validation.MinLength {
		return fmt.Sprintf("value must be at least %d characters", *def.Validation.MinLength)
	}
	if def.Validation.MaxLength != nil && length > *def.Validation.MaxLength {
		return fmt.Sprintf("value must be at most %d characters", *def.Validation.MaxLength)
	}
	if def.Validation.Regex != "" {
		re, err := regexp.Compile(def.Validation.Regex)
		if err != nil {
			return "invalid pattern constraint"
		}
		if !re.MatchString(s) {
			return "value does not match the required pattern"
		}
	}
	return ""
}

func checkNumber(def *models.FieldDefinition, value any) string {
	n, ok := numericValue(value)
	if !ok {
		return "value must be a number"
	}
	if def.Validation.Min != nil && n < *def.Validation.Min {
		return fmt.Sprintf("value must be at least %v", *def.Validation.Min)
	}
	if def.Validation.Max != nil && n > *def.Validation.Max {
		return fmt.Sprintf("value must be at most %v", *def.Validation.Max)
	}
	return ""
}

func checkDate(value any) string {
	switch d := value.(type) {
	case time.Time:
		return ""
	case string:
		if _, err := time.Parse(time.RFC3339, d); err == nil {
			return ""
		}
		if _, err := time.Parse("2006-01-02", d); err == nil {
			return ""
		}
		return "value must be a valid date"
	default:
		return "value must be a valid date"
	}
}

func checkSelect(def *models.FieldDefinition, value any) string {
	s, ok := value.(string)
	if !ok {
		return "value must be a string"
	}
	// A definition without options accepts any string.
	if len(def.Options) == 0 {
		return ""
	}
	if !def.HasOption(s) {
		return "value is not one of the allowed options"
	}
	return ""
}

func checkMultiselect(def *models.FieldDefinition, value any) string {
	items, ok := anySlice(value)
	if !ok {
		return "value must be an array"
	}
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return "every value must be a string"
		}
		if !def.HasOption(s) {
			return "value is not one of the allowed options"
		}
	}
	return ""
}

// numericValue accepts the numeric shapes a JSON decode can produce.
func numericValue(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func anySlice(value any) ([]any, bool) {
	switch s := value.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, v := range s {
			out[i] = v
		}
		return out, true
	}
	return nil, false
}

// isEmpty reports whether a value counts as absent for the required check.
func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
