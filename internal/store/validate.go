package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ValidationError reports a schema violation on a single field. Handlers map
// it to a 400 response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// RelationChecker resolves relation field values to existing records.
// Satisfied by *Store.
type RelationChecker interface {
	RecordExists(ctx context.Context, collectionName string, id uuid.UUID) (bool, error)
}

// ValidateData checks record data against the collection schema: required
// fields, value types, select membership, and relation targets. Fields not in
// the schema are tolerated (and stored as-is), matching the permissive write
// model of the record store.
func ValidateData(ctx context.Context, col Collection, data map[string]any, relations RelationChecker) error {
	for _, f := range col.Fields {
		v, present := data[f.Name]

		if !present || v == nil {
			if f.Required {
				return &ValidationError{Field: f.Name, Reason: "required"}
			}
			continue
		}

		if err := checkFieldValue(f, v); err != nil {
			return err
		}

		if f.Type == FieldRelation {
			id, err := uuid.Parse(v.(string))
			if err != nil {
				return &ValidationError{Field: f.Name, Reason: "invalid relation id"}
			}
			exists, err := relations.RecordExists(ctx, f.Options.Collection, id)
			if err != nil {
				return fmt.Errorf("check relation %s: %w", f.Name, err)
			}
			if !exists {
				return &ValidationError{Field: f.Name, Reason: "related record not found"}
			}
		}
	}
	return nil
}

// checkFieldValue validates a single non-nil value against its field type.
// JSON decoding has already normalized numbers to float64.
func checkFieldValue(f Field, v any) error {
	switch f.Type {
	case FieldText:
		s, ok := v.(string)
		if !ok {
			return &ValidationError{Field: f.Name, Reason: "must be a string"}
		}
		if f.Required && s == "" {
			return &ValidationError{Field: f.Name, Reason: "required"}
		}

	case FieldNumber:
		switch v.(type) {
		case float64, int, int64:
		default:
			return &ValidationError{Field: f.Name, Reason: "must be a number"}
		}

	case FieldBool:
		if _, ok := v.(bool); !ok {
			return &ValidationError{Field: f.Name, Reason: "must be a boolean"}
		}

	case FieldJSON:
		// Any JSON value is acceptable.

	case FieldSelect:
		s, ok := v.(string)
		if !ok {
			return &ValidationError{Field: f.Name, Reason: "must be a string"}
		}
		for _, allowed := range f.Options.Values {
			if s == allowed {
				return nil
			}
		}
		return &ValidationError{Field: f.Name, Reason: fmt.Sprintf("invalid value %q", s)}

	case FieldRelation:
		if _, ok := v.(string); !ok {
			return &ValidationError{Field: f.Name, Reason: "must be a record id"}
		}

	default:
		return &ValidationError{Field: f.Name, Reason: fmt.Sprintf("unknown field type %q", f.Type)}
	}
	return nil
}
