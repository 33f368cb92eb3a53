package docstore

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLite is a Documents implementation backed by a single SQLite file.
type SQLite struct {
	db      *sql.DB
	now     func() time.Time
	indexes []string
}

var _ Documents = (*SQLite)(nil)

// Option configures a SQLite store.
type Option func(*SQLite)

// WithClock sets the clock used to resolve ServerTimestamp placeholders.
// Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *SQLite) {
		s.now = now
	}
}

// WithIndex adds an expression index over a top-level field so Query on
// that field does not scan the collection. Field names follow the Query
// rules; an invalid name fails Open.
func WithIndex(fields ...string) Option {
	return func(s *SQLite) {
		s.indexes = append(s.indexes, fields...)
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas, the schema, and requested indexes.
//
// Use ":memory:" for a throwaway store; the single-connection pool keeps
// the in-memory database alive for the lifetime of the store.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := newStore(db, opts...)
	if err := s.applyIndexes(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newStore(db *sql.DB, opts ...Option) *SQLite {
	s := &SQLite{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using store methods when available.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applyIndexes creates one index per requested field. The indexed
// expression matches the one Query emits.
func (s *SQLite) applyIndexes() error {
	for _, field := range s.indexes {
		if !fieldPattern.MatchString(field) {
			return fmt.Errorf("failed to create index: invalid field name %q", field)
		}
		stmt := fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_documents_%s ON documents(collection, %s)",
			field, fieldExpr(field),
		)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", field, err)
		}
	}
	return nil
}
