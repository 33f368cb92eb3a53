package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/text/unicode/norm"
)

// fieldPattern restricts Query to plain top-level field names so the name
// can be spliced into a JSON path.
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// fieldExpr is the SQL expression extracting a top-level field. The path is
// a literal so expression indexes created by WithIndex match it.
func fieldExpr(field string) string {
	return "json_extract(body, '$." + field + "')"
}

// Get retrieves a document by key.
// Returns ErrNotFound if the document does not exist.
func (s *SQLite) Get(ctx context.Context, collection, id string) (Fields, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM documents
		WHERE collection = ? AND id = ?
	`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	fields, err := unmarshalDocument(body)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return fields, nil
}

// Query returns all documents in collection whose top-level field equals
// value. Results are ordered by id for deterministic output.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *SQLite) Query(ctx context.Context, collection, field string, value any) ([]Document, error) {
	if !fieldPattern.MatchString(field) {
		return nil, fmt.Errorf("query documents: invalid field name %q", field)
	}

	arg, err := queryArg(value)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body FROM documents
		WHERE collection = ? AND `+fieldExpr(field)+` = ?
		ORDER BY id COLLATE BINARY ASC
	`, collection, arg)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := unmarshalDocument(body)
		if err != nil {
			return nil, fmt.Errorf("query documents: %s: %w", id, err)
		}
		docs = append(docs, Document{ID: id, Fields: fields})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// queryArg converts a comparison value to the representation json_extract
// yields for it.
func queryArg(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return norm.NFC.String(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case time.Time:
		return v.UTC().Format(TimeFormat), nil
	default:
		return nil, fmt.Errorf("unsupported query value type %T", value)
	}
}
