// Package docstore provides keyed document storage for order records.
//
// A document is a flat-ish map of fields addressed by (collection, id). The
// package exposes the Documents interface consumed by the lifecycle engine and
// a SQLite-backed implementation.
//
// # Document Encoding
//
// Documents are persisted as canonical JSON:
//   - Object keys sorted by UTF-16 code units
//   - Strings NFC normalized, no HTML escaping
//   - Integers only, floats rejected
//   - time.Time values written as RFC 3339 UTC with nanoseconds
//
// Canonical bytes make stored documents comparable byte-for-byte, which keeps
// golden snapshots stable.
//
// # Write Semantics
//
// Set either replaces the whole document or merges top-level fields into it.
// There is no version check: concurrent writers race and the last write wins.
// ServerTimestamp placeholders are resolved with the store clock at write time
// and Delete removes a field during a merge.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package docstore
