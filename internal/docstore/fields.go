package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no document exists for the key.
var ErrNotFound = errors.New("document not found")

// Fields is the field set of a single document.
//
// Values read back from the store are one of: string, bool, int64, []any,
// map[string]any. Time values come back as RFC 3339 strings; callers that
// know a field holds an instant parse it with ParseTime.
type Fields map[string]any

// Document pairs a document id with its fields. Returned by Query.
type Document struct {
	ID     string
	Fields Fields
}

// SetOption selects replace or merge semantics for Set.
type SetOption int

const (
	// Replace overwrites the whole document.
	Replace SetOption = iota
	// Merge overlays the given top-level fields onto the existing document,
	// creating it if absent.
	Merge
)

type sentinel string

const (
	// ServerTimestamp is replaced by the store clock when written.
	ServerTimestamp sentinel = "server_timestamp"

	// Delete removes the field under Merge. Under Replace it is dropped.
	Delete sentinel = "delete"
)

// Documents is the store contract consumed by the lifecycle engine.
type Documents interface {
	// Get returns the document fields, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Fields, error)

	// Set writes fields using the given option.
	Set(ctx context.Context, collection, id string, fields Fields, opt SetOption) error

	// Query returns documents whose top-level field equals value,
	// ordered by id.
	Query(ctx context.Context, collection, field string, value any) ([]Document, error)
}

// TimeFormat is the layout used for stored instants.
const TimeFormat = time.RFC3339Nano

// ParseTime parses an instant previously written by the store.
func ParseTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
