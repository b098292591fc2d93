package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Field types supported by collection schemas.
const (
	FieldText     = "text"
	FieldNumber   = "number"
	FieldBool     = "bool"
	FieldJSON     = "json"
	FieldSelect   = "select"
	FieldRelation = "relation"
)

// FieldOptions carries per-type settings: select values, or the relation
// target collection and its delete behavior.
type FieldOptions struct {
	Values        []string `json:"values,omitempty"`
	Collection    string   `json:"collection,omitempty"`
	CascadeDelete bool     `json:"cascadeDelete,omitempty"`
}

// Field is a single schema field definition.
type Field struct {
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Required bool         `json:"required,omitempty"`
	Options  FieldOptions `json:"options,omitempty"`
}

// Collection is a named record schema with access rules. A nil rule means
// superuser-only; an empty string means public.
type Collection struct {
	ID         uuid.UUID
	Name       string
	Type       string
	Fields     []Field
	ListRule   *string
	ViewRule   *string
	CreateRule *string
	UpdateRule *string
	DeleteRule *string
	Created    time.Time
	Updated    time.Time
}

// FieldByName returns the schema field with the given name, if any.
func (c Collection) FieldByName(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

const collectionColumns = `id, name, type, fields, list_rule, view_rule, create_rule, update_rule, delete_rule, created, updated`

func scanCollection(row interface{ Scan(...any) error }) (Collection, error) {
	var c Collection
	var fields []byte
	err := row.Scan(&c.ID, &c.Name, &c.Type, &fields,
		&c.ListRule, &c.ViewRule, &c.CreateRule, &c.UpdateRule, &c.DeleteRule,
		&c.Created, &c.Updated)
	if err != nil {
		return Collection{}, err
	}
	if err := json.Unmarshal(fields, &c.Fields); err != nil {
		return Collection{}, fmt.Errorf("decode fields for %s: %w", c.Name, err)
	}
	return c, nil
}

// CreateCollection inserts a new collection. Returns ErrCollectionExists when
// the name is taken.
func (s *Store) CreateCollection(ctx context.Context, c Collection) (Collection, error) {
	fields, err := json.Marshal(c.Fields)
	if err != nil {
		return Collection{}, fmt.Errorf("encode fields: %w", err)
	}
	if c.Type == "" {
		c.Type = "base"
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO collections (name, type, fields, list_rule, view_rule, create_rule, update_rule, delete_rule)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+collectionColumns,
		c.Name, c.Type, fields, c.ListRule, c.ViewRule, c.CreateRule, c.UpdateRule, c.DeleteRule)

	created, err := scanCollection(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Collection{}, ErrCollectionExists
		}
		return Collection{}, err
	}
	return created, nil
}

// GetCollectionByName fetches a collection schema. Propagates pgx.ErrNoRows
// when the collection does not exist.
func (s *Store) GetCollectionByName(ctx context.Context, name string) (Collection, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE name = $1`, name)
	return scanCollection(row)
}

// ListCollections returns all collections ordered by name.
func (s *Store) ListCollections(ctx context.Context) ([]Collection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+collectionColumns+` FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}
