package fields

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/slatehq/slate/internal/models"
)

type mockRegistry struct {
	defs    []*models.FieldDefinition
	listErr error
}

func (m *mockRegistry) List(ctx context.Context) ([]*models.FieldDefinition, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.defs, nil
}

func def(id, name string, fieldType models.FieldType) *models.FieldDefinition {
	d := models.NewFieldDefinition(name, fieldType)
	d.ID = id
	return d
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestValidateValues_MissingRequiredAggregated(t *testing.T) {
	a := def("f1", "Alpha", models.FieldTypeText)
	a.Required = true
	b := def("f2", "Beta", models.FieldTypeNumber)
	b.Required = true
	c := def("f3", "Gamma", models.FieldTypeText) // optional

	v := NewValidator(&mockRegistry{defs: []*models.FieldDefinition{a, b, c}})

	_, err := v.ValidateValues(context.Background(), nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(verr.Errors) != 2 {
		t.Fatalf("errors = %d, want 2 (both missing fields reported)", len(verr.Errors))
	}
	msg := verr.Error()
	if !strings.Contains(msg, "alpha") || !strings.Contains(msg, "beta") {
		t.Errorf("error %q should name both missing fields", msg)
	}
}

func TestValidateValues_InactiveRequiredIgnored(t *testing.T) {
	a := def("f1", "Alpha", models.FieldTypeText)
	a.Required = true
	a.Active = false

	v := NewValidator(&mockRegistry{defs: []*models.FieldDefinition{a}})
	if _, err := v.ValidateValues(context.Background(), nil); err != nil {
		t.Errorf("inactive required field should not be enforced: %v", err)
	}
}

func TestValidateValues_UnknownField(t *testing.T) {
	v := NewValidator(&mockRegistry{})
	_, err := v.ValidateValues(context.Background(), []models.FieldValue{
		{FieldID: "ghost", Value: "x"},
	})
	var ferr *InvalidFieldError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want InvalidFieldError", err)
	}
	if ferr.Ref != "ghost" {
		t.Errorf("ref = %s, want ghost", ferr.Ref)
	}
}

func TestValidateValues_NumberConstraints(t *testing.T) {
	budget := def("f1", "Budget", models.FieldTypeNumber)
	budget.Required = true
	budget.Validation.Min = floatPtr(0)
	budget.Validation.Max = floatPtr(1000000)

	v := NewValidator(&mockRegistry{defs: []*models.FieldDefinition{budget}})
	ctx := context.Background()

	_, err := v.ValidateValues(ctx, []models.FieldValue{{FieldID: "budget", Value: float64(-5)}})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("negative budget error = %v, want ValidationError", err)
	}

	got, err := v.ValidateValues(ctx, []models.FieldValue{{FieldID: "budget", Value: float64(500)}})
	if err != nil {
		t.Fatalf("valid budget rejected: %v", err)
	}
	if len(got) != 1 || got[0].FieldID != "f1" {
		t.Fatalf("normalized = %+v, want field ref resolved to f1", got)
	}
	if got[0].Value.(float64) != 500 {
		t.Errorf("value = %v, want 500 unchanged", got[0].Value)
	}
}

func TestValidateValues_TypeDispatch(t *testing.T) {
	text := def("t1", "Title", models.FieldTypeText)
	text.Validation.MinLength = intPtr(2)
	text.Validation.MaxLength = intPtr(5)
	pattern := def("t2", "Code", models.FieldTypeText)
	pattern.Validation.Regex = "^[A-Z]{3}$"
	boolean := def("b1", "Done", models.FieldTypeBoolean)
	date := def("d1", "Due", models.FieldTypeDate)
	sel := def("s1", "Status", models.FieldTypeSelect)
	sel.Options = []string{"open", "closed"}
	selAny := def("s2", "Label", models.FieldTypeSelect) // no options
	multi := def("m1", "Tags", models.FieldTypeMultiselect)
	multi.Options = []string{"red", "blue"}

	v := NewValidator(&mockRegistry{defs: []*models.FieldDefinition{
		text, pattern, boolean, date, sel, selAny, multi,
	}})
	ctx := context.Background()

	tests := []struct {
		name    string
		pair    models.FieldValue
		wantErr bool
	}{
		{"text ok", models.FieldValue{FieldID: "t1", Value: "abc"}, false},
		{"text not a string", models.FieldValue{FieldID: "t1", Value: 7.0}, true},
		{"text too short", models.FieldValue{FieldID: "t1", Value: "a"}, true},
		{"text too long", models.FieldValue{FieldID: "t1", Value: "abcdef"}, true},
		{"regex match", models.FieldValue{FieldID: "t2", Value: "ABC"}, false},
		{"regex mismatch", models.FieldValue{FieldID: "t2", Value: "abc"}, true},
		{"boolean ok", models.FieldValue{FieldID: "b1", Value: true}, false},
		{"boolean wrong type", models.FieldValue{FieldID: "b1", Value: "true"}, true},
		{"date iso", models.FieldValue{FieldID: "d1", Value: "2026-01-15"}, false},
		{"date rfc3339", models.FieldValue{FieldID: "d1", Value: "2026-01-15T10:00:00Z"}, false},
		{"date garbage", models.FieldValue{FieldID: "d1", Value: "not-a-date"}, true},
		{"select in options", models.FieldValue{FieldID: "s1", Value: "open"}, false},
		{"select not in options", models.FieldValue{FieldID: "s1", Value: "pending"}, true},
		{"select no options accepts any", models.FieldValue{FieldID: "s2", Value: "whatever"}, false},
		{"multiselect ok", models.FieldValue{FieldID: "m1", Value: []any{"red", "blue"}}, false},
		{"multiselect bad option", models.FieldValue{FieldID: "m1", Value: []any{"red", "green"}}, true},
		{"multiselect not array", models.FieldValue{FieldID: "m1", Value: "red"}, true},
		{"multiselect non-string element", models.FieldValue{FieldID: "m1", Value: []any{1.0}}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.ValidateValues(ctx, []models.FieldValue{tc.pair})
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateValues_NilValueSkipsTypeChecks(t *testing.T) {
	num := def("f1", "Score", models.FieldTypeNumber)
	v := NewValidator(&mockRegistry{defs: []*models.FieldDefinition{num}})

	got, err := v.ValidateValues(context.Background(), []models.FieldValue{
		{FieldID: "f1", Value: nil},
	})
	if err != nil {
		t.Fatalf("nil value on optional field rejected: %v", err)
	}
	if len(got) != 1 || got[0].Value != nil {
		t.Errorf("normalized = %+v, want nil value passed through", got)
	}
}

func TestValidateValues_KeyReferenceNormalized(t *testing.T) {
	d := def("field-123", "Launch Date", models.FieldTypeDate)
	if d.Key != "launch_date" {
		t.Fatalf("key = %s, want launch_date", d.Key)
	}
	v := NewValidator(&mockRegistry{defs: []*models.FieldDefinition{d}})

	got, err := v.ValidateValues(context.Background(), []models.FieldValue{
		{FieldID: "launch_date", Value: "2026-03-01"},
	})
	if err != nil {
		t.Fatalf("validate by key: %v", err)
	}
	if got[0].FieldID != "field-123" {
		t.Errorf("normalized ref = %s, want field-123", got[0].FieldID)
	}
}

func TestValidateValues_DryRunMatchesWriteDecision(t *testing.T) {
	num := def("f1", "Budget", models.FieldTypeNumber)
	num.Validation.Min = floatPtr(0)
	v := NewValidator(&mockRegistry{defs: []*models.FieldDefinition{num}})
	ctx := context.Background()

	// The same validator instance serves both entry points; identical input
	// must produce identical decisions.
	pairs := []models.FieldValue{{FieldID: "f1", Value: float64(42)}}
	first, err1 := v.ValidateValues(ctx, pairs)
	second, err2 := v.ValidateValues(ctx, pairs)
	if (err1 == nil) != (err2 == nil) {
		t.Fatalf("decisions differ: %v vs %v", err1, err2)
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("normalized output differs: %+v vs %+v", first, second)
	}
}

func TestValidateValues_RegistryFailure(t *testing.T) {
	v := NewValidator(&mockRegistry{listErr: errors.New("db down")})
	_, err := v.ValidateValues(context.Background(), nil)
	if err == nil {
		t.Error("registry failure must surface, not pass validation")
	}
}
