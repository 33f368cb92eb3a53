package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Set writes a document.
//
// Replace stores exactly the given fields. Merge reads the current document
// inside the same transaction, overlays the given top-level fields, removes
// fields set to Delete, and stores the result. A missing document is created
// in both modes.
//
// There is no revision check; the last write wins.
func (s *SQLite) Set(ctx context.Context, collection, id string, fields Fields, opt SetOption) error {
	if collection == "" || id == "" {
		return fmt.Errorf("set document: collection and id are required")
	}

	now := s.now().UTC()
	resolved, deleted := resolveFields(fields, now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set document: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	body := resolved
	if opt == Merge {
		existing, err := readTx(ctx, tx, collection, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("set document: %w", err)
		}
		if existing != nil {
			for k, v := range resolved {
				existing[k] = v
			}
			for _, k := range deleted {
				delete(existing, k)
			}
			body = existing
		}
	}

	text, err := marshalDocument(body)
	if err != nil {
		return fmt.Errorf("set document: %w", err)
	}

	stamp := now.Format(TimeFormat)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`, collection, id, text, stamp, stamp)
	if err != nil {
		return fmt.Errorf("set document: write: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set document: commit: %w", err)
	}
	return nil
}

func readTx(ctx context.Context, tx *sql.Tx, collection, id string) (Fields, error) {
	var body string
	err := tx.QueryRowContext(ctx, `
		SELECT body FROM documents
		WHERE collection = ? AND id = ?
	`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return unmarshalDocument(body)
}
