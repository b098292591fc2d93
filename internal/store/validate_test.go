package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

// stubRelations answers RecordExists from a fixed set of known ids.
type stubRelations struct {
	known map[uuid.UUID]bool
	err   error
}

func (s *stubRelations) RecordExists(_ context.Context, _ string, id uuid.UUID) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.known[id], nil
}

func productsCollection() Collection {
	return Collection{
		Name: "products",
		Fields: []Field{
			{Name: "name", Type: FieldText, Required: true},
			{Name: "price", Type: FieldNumber, Required: true},
			{Name: "active", Type: FieldBool},
			{Name: "images", Type: FieldJSON},
			{Name: "group", Type: FieldRelation, Required: true, Options: FieldOptions{Collection: "groups"}},
		},
	}
}

func assertViolation(t *testing.T, err error, field, reason string) {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != field || verr.Reason != reason {
		t.Errorf("got %q/%q, want %q/%q", verr.Field, verr.Reason, field, reason)
	}
}

func TestValidateData_Valid(t *testing.T) {
	groupID := uuid.New()
	relations := &stubRelations{known: map[uuid.UUID]bool{groupID: true}}

	data := map[string]any{
		"name":   "X-Burger",
		"price":  32.90,
		"active": true,
		"images": []any{"https://example.com/a.jpg"},
		"group":  groupID.String(),
	}
	if err := ValidateData(context.Background(), productsCollection(), data, relations); err != nil {
		t.Fatalf("ValidateData: %v", err)
	}
}

func TestValidateData_MissingRequired(t *testing.T) {
	relations := &stubRelations{}

	err := ValidateData(context.Background(), productsCollection(), map[string]any{
		"price": 10.0,
		"group": uuid.New().String(),
	}, relations)
	assertViolation(t, err, "name", "required")
}

func TestValidateData_NilCountsAsMissing(t *testing.T) {
	relations := &stubRelations{}

	err := ValidateData(context.Background(), productsCollection(), map[string]any{
		"name":  nil,
		"price": 10.0,
	}, relations)
	assertViolation(t, err, "name", "required")
}

func TestValidateData_RequiredTextMustBeNonEmpty(t *testing.T) {
	groupID := uuid.New()
	relations := &stubRelations{known: map[uuid.UUID]bool{groupID: true}}

	err := ValidateData(context.Background(), productsCollection(), map[string]any{
		"name":  "",
		"price": 10.0,
		"group": groupID.String(),
	}, relations)
	assertViolation(t, err, "name", "required")
}

func TestValidateData_TypeMismatches(t *testing.T) {
	groupID := uuid.New()
	relations := &stubRelations{known: map[uuid.UUID]bool{groupID: true}}

	base := func() map[string]any {
		return map[string]any{
			"name":  "X-Burger",
			"price": 10.0,
			"group": groupID.String(),
		}
	}

	tests := []struct {
		name   string
		field  string
		value  any
		reason string
	}{
		{"text gets number", "name", 42.0, "must be a string"},
		{"number gets string", "price", "10", "must be a number"},
		{"bool gets string", "active", "yes", "must be a boolean"},
		{"relation gets number", "group", 1.0, "must be a record id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := base()
			data[tt.field] = tt.value
			err := ValidateData(context.Background(), productsCollection(), data, relations)
			assertViolation(t, err, tt.field, tt.reason)
		})
	}
}

func TestValidateData_SelectMembership(t *testing.T) {
	col := Collection{
		Name: "orders",
		Fields: []Field{
			{Name: "status", Type: FieldSelect, Required: true,
				Options: FieldOptions{Values: []string{"pending", "preparing", "ready", "delivered", "cancelled"}}},
		},
	}
	relations := &stubRelations{}

	if err := ValidateData(context.Background(), col, map[string]any{"status": "pending"}, relations); err != nil {
		t.Fatalf("valid status: %v", err)
	}

	err := ValidateData(context.Background(), col, map[string]any{"status": "shipped"}, relations)
	assertViolation(t, err, "status", `invalid value "shipped"`)
}

func TestValidateData_RelationChecks(t *testing.T) {
	groupID := uuid.New()
	relations := &stubRelations{known: map[uuid.UUID]bool{groupID: true}}

	data := func(rel string) map[string]any {
		return map[string]any{"name": "X-Burger", "price": 10.0, "group": rel}
	}

	err := ValidateData(context.Background(), productsCollection(), data("not-a-uuid"), relations)
	assertViolation(t, err, "group", "invalid relation id")

	err = ValidateData(context.Background(), productsCollection(), data(uuid.New().String()), relations)
	assertViolation(t, err, "group", "related record not found")

	if err := ValidateData(context.Background(), productsCollection(), data(groupID.String()), relations); err != nil {
		t.Fatalf("existing relation: %v", err)
	}
}

func TestValidateData_RelationCheckerError(t *testing.T) {
	relations := &stubRelations{err: errors.New("connection refused")}

	err := ValidateData(context.Background(), productsCollection(), map[string]any{
		"name": "X-Burger", "price": 10.0, "group": uuid.New().String(),
	}, relations)
	if err == nil {
		t.Fatal("expected an error")
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Errorf("store errors must not surface as validation errors: %v", err)
	}
}

func TestValidateData_ToleratesUnknownFields(t *testing.T) {
	groupID := uuid.New()
	relations := &stubRelations{known: map[uuid.UUID]bool{groupID: true}}

	err := ValidateData(context.Background(), productsCollection(), map[string]any{
		"name":  "X-Burger",
		"price": 10.0,
		"group": groupID.String(),
		"notes": "extra field not in schema",
	}, relations)
	if err != nil {
		t.Fatalf("unknown fields should be tolerated: %v", err)
	}
}
