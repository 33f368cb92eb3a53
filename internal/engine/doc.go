// Package engine implements the order lifecycle.
//
// Every operation is a read-modify-write of one order document:
//
//  1. Load the record and its tier.
//  2. Validate the request against the record. Validation failures are
//     returned as *ValidationError before anything is uploaded or written.
//  3. Upload any proof-of-payment or content files.
//  4. Merge the changed fields into the document, stamping updated_at.
//
// The write is the last step, so an operation either fully applies or
// leaves the document unchanged. There is no revision check; concurrent
// callers race and the last write wins.
//
// The tier table is injected and read-only. Entitlements and history are
// derived on read by the entitlement and history packages.
package engine
