// Package harness runs lifecycle scenarios against a real engine.
//
// A scenario is a YAML file naming an order to create, a sequence of
// operations at fixed instants, and assertions on the final record, its
// entitlements, and its projected history. Each run uses a fresh in-memory
// SQLite store, in-memory blob storage, a manual clock, and a fixed order
// id, so the same scenario always produces the same snapshot.
//
// Snapshots are canonical JSON and can be compared against golden files
// with RunWithGolden. Blob names are random UUIDs; snapshots redact them.
package harness
