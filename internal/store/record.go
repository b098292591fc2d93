package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Record is a single document in a collection.
type Record struct {
	ID           uuid.UUID
	CollectionID uuid.UUID
	Data         map[string]any
	Created      time.Time
	Updated      time.Time
}

const recordColumns = `id, collection_id, data, created, updated`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var r Record
	var data []byte
	if err := row.Scan(&r.ID, &r.CollectionID, &data, &r.Created, &r.Updated); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(data, &r.Data); err != nil {
		return Record{}, fmt.Errorf("decode record data: %w", err)
	}
	return r, nil
}

// CreateRecord inserts a record into the given collection.
func (s *Store) CreateRecord(ctx context.Context, collectionID uuid.UUID, data map[string]any) (Record, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return Record{}, fmt.Errorf("encode record data: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO records (collection_id, data)
		VALUES ($1, $2)
		RETURNING `+recordColumns,
		collectionID, encoded)
	return scanRecord(row)
}

// GetRecord fetches a record by id within a collection. Propagates
// pgx.ErrNoRows when absent.
func (s *Store) GetRecord(ctx context.Context, collectionID, id uuid.UUID) (Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = $1 AND collection_id = $2`,
		id, collectionID)
	return scanRecord(row)
}

// ListRecords returns every record of a collection in creation order.
// Filtering and sorting happen in the handler; catalogs here are small.
func (s *Store) ListRecords(ctx context.Context, collectionID uuid.UUID) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM records WHERE collection_id = $1 ORDER BY created, id`,
		collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountRecords returns the number of records in a collection.
func (s *Store) CountRecords(ctx context.Context, collectionID uuid.UUID) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM records WHERE collection_id = $1`, collectionID).Scan(&n)
	return n, err
}

// UpdateRecord replaces a record's data. Propagates pgx.ErrNoRows when the
// record does not exist in the collection.
func (s *Store) UpdateRecord(ctx context.Context, collectionID, id uuid.UUID, data map[string]any) (Record, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return Record{}, fmt.Errorf("encode record data: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE records SET data = $1, updated = now()
		WHERE id = $2 AND collection_id = $3
		RETURNING `+recordColumns,
		encoded, id, collectionID)
	return scanRecord(row)
}

// RecordExists reports whether a record id exists in the named collection.
// Used for relation validation.
func (s *Store) RecordExists(ctx context.Context, collectionName string, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM records r
			JOIN collections c ON c.id = r.collection_id
			WHERE c.name = $1 AND r.id = $2
		)`, collectionName, id).Scan(&exists)
	return exists, err
}

// DeleteRecord removes a record and cascades through relation fields marked
// cascadeDelete in other collections (a deleted group takes its categories
// with it). Runs in a single transaction. Propagates pgx.ErrNoRows when the
// record does not exist.
func (s *Store) DeleteRecord(ctx context.Context, col Collection, id uuid.UUID) error {
	collections, err := s.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections for cascade: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := deleteRecordTx(ctx, tx, collections, col, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func deleteRecordTx(ctx context.Context, tx pgx.Tx, collections []Collection, col Collection, id uuid.UUID) error {
	tag, err := tx.Exec(ctx,
		`DELETE FROM records WHERE id = $1 AND collection_id = $2`, id, col.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	for _, other := range collections {
		for _, f := range other.Fields {
			if f.Type != FieldRelation || !f.Options.CascadeDelete || f.Options.Collection != col.Name {
				continue
			}
			rows, err := tx.Query(ctx,
				`SELECT id FROM records WHERE collection_id = $1 AND data->>$2 = $3`,
				other.ID, f.Name, id.String())
			if err != nil {
				return err
			}
			var dependents []uuid.UUID
			for rows.Next() {
				var depID uuid.UUID
				if err := rows.Scan(&depID); err != nil {
					rows.Close()
					return err
				}
				dependents = append(dependents, depID)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}

			for _, depID := range dependents {
				// A dependent may already be gone via another cascade path.
				if err := deleteRecordTx(ctx, tx, collections, other, depID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
					return err
				}
			}
		}
	}
	return nil
}
