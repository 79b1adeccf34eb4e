package models

import (
	"strings"
	"time"
)

// FieldType is the declared type of a custom field definition.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeNumber      FieldType = "number"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeDate        FieldType = "date"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiselect FieldType = "multiselect"
)

// ParseFieldType converts a string to FieldType. Returns false for unknown values.
func ParseFieldType(s string) (FieldType, bool) {
	t := FieldType(s)
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeNumber, FieldTypeBoolean,
		FieldTypeDate, FieldTypeSelect, FieldTypeMultiselect:
		return t, true
	}
	return "", false
}

// FieldValidation holds per-type value constraints.
// Min/Max apply to number fields, MinLength/MaxLength/Regex to text fields.
type FieldValidation struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Regex     string   `json:"regex,omitempty"`
}

// FieldDefinition describes a custom field created at runtime.
type FieldDefinition struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Key          string          `json:"key"` // normalized, unique across the registry
	Type         FieldType       `json:"type"`
	Required     bool            `json:"required"`
	Order        int             `json:"order"`
	Options      []string        `json:"options,omitempty"` // select/multiselect only
	DefaultValue any             `json:"default_value,omitempty"`
	Validation   FieldValidation `json:"validation"`
	Active       bool            `json:"active"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewFieldDefinition creates an active FieldDefinition with a key normalized
// from name.
func NewFieldDefinition(name string, fieldType FieldType) *FieldDefinition {
	now := time.Now()
	return &FieldDefinition{
		Name:      name,
		Key:       NormalizeFieldKey(name),
		Type:      fieldType,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeFieldKey converts a field name to its canonical key form:
// trimmed, lowercased, spaces collapsed to underscores.
func NormalizeFieldKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(key), "_")
}

// HasOption returns true if v is one of the definition's options.
func (d *FieldDefinition) HasOption(v string) bool {
	for _, opt := range d.Options {
		if opt == v {
			return true
		}
	}
	return false
}

// FieldValue is an untyped value stored on a project against a field
// definition. The value shape is only trusted after validation.
type FieldValue struct {
	FieldID string `json:"field_id"`
	Value   any    `json:"value"`
}
