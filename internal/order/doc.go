// Package order defines the Order Record: one long-lived document per
// purchase, mutated in place across payment, approval, expiration, renewal,
// and content edits.
//
// # Sub-states
//
// Each payment request on a record (extension, text-edit payment,
// image-edit payment) is a Request whose Phase is one of Unrequested,
// Pending, Approved, or Rejected. The resolution instant is a single field,
// so a request cannot be approved and rejected at once.
//
// # Persistence
//
// The stored document keeps the flat field layout the page renderer
// reads (extension_requested_at, text_edit_payment_approved_at, ...).
// ToFields and FromFields convert between that layout and Record; the
// phase of each request is derived from which instants are present.
//
// INVARIANTS (checked by Validate):
//   - approved_at implies status approved, rejected_at implies status rejected
//   - pending status carries neither instant
//   - edit counters are non-negative
//   - an applied paid edit is approved
package order
