// Package history reconstructs an order's audit trail from its stored
// request instants. No event log is persisted; Project is a pure function
// over the record.
package history

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/roach88/storypage/internal/order"
)

// Kind names the sub-state an event was projected from.
type Kind string

const (
	KindOrder            Kind = "order"
	KindExtension        Kind = "extension"
	KindTextEditPayment  Kind = "text_edit_payment"
	KindImageEditPayment Kind = "image_edit_payment"
)

// Event is one projected audit entry.
type Event struct {
	Kind        Kind        `json:"kind"`
	Outcome     order.Phase `json:"-"`
	Label       string      `json:"label"`
	Detail      string      `json:"detail"`
	RequestedAt time.Time   `json:"requested_at"`
	ResolvedAt  time.Time   `json:"resolved_at,omitzero"`
}

// Resolved reports whether the event carries a resolution instant.
func (e Event) Resolved() bool { return !e.ResolvedAt.IsZero() }

// Project returns the record's events in ascending request order. Events
// requested at the same instant keep the order: creation, extension, text
// payment, image payment.
func Project(r *order.Record) []Event {
	var events []Event

	if !r.CreatedAt.IsZero() {
		events = append(events, orderEvent(r))
	}
	if ext := r.Extension; ext.Phase() != order.Unrequested {
		detail := fmt.Sprintf("%d days, price %d", ext.Days, ext.Price)
		if ext.SpecialLink {
			detail += ", special link"
		}
		events = append(events, requestEvent(KindExtension, ext.Request, detail))
	}
	for _, kind := range []order.EditKind{order.EditText, order.EditImage} {
		p := r.PaidEdit(kind)
		if p.Phase() == order.Unrequested {
			continue
		}
		detail := fmt.Sprintf("price %d", p.Price)
		if _, ok := p.AppliedAt(); ok {
			detail += ", applied"
		}
		events = append(events, requestEvent(paymentKind(kind), p.Request, detail))
	}

	slices.SortStableFunc(events, func(a, b Event) int {
		return a.RequestedAt.Compare(b.RequestedAt)
	})
	return events
}

func orderEvent(r *order.Record) Event {
	e := Event{
		Kind:        KindOrder,
		Outcome:     order.Pending,
		Detail:      fmt.Sprintf("tier %s, price %d", r.Tier, r.Price),
		RequestedAt: r.CreatedAt.UTC(),
	}
	// Approval wins display-wise if a legacy record carries both instants.
	switch {
	case !r.ApprovedAt.IsZero():
		e.Outcome = order.Approved
		e.ResolvedAt = r.ApprovedAt.UTC()
	case !r.RejectedAt.IsZero():
		e.Outcome = order.Rejected
		e.ResolvedAt = r.RejectedAt.UTC()
	}
	e.Label = e.Outcome.String()
	return e
}

func requestEvent(kind Kind, req order.Request, detail string) Event {
	e := Event{
		Kind:        kind,
		Outcome:     req.Phase(),
		Label:       req.Phase().String(),
		Detail:      detail,
		RequestedAt: req.RequestedAt(),
	}
	if at, ok := req.ResolvedAt(); ok {
		e.ResolvedAt = at
	}
	return e
}

func paymentKind(kind order.EditKind) Kind {
	if kind == order.EditImage {
		return KindImageEditPayment
	}
	return KindTextEditPayment
}

// Write renders events one per line, tab separated:
// requested_at, kind, label, detail, and resolved_at when resolved.
func Write(w io.Writer, events []Event) error {
	var b strings.Builder
	for _, e := range events {
		b.WriteString(e.RequestedAt.Format(time.RFC3339))
		b.WriteByte('\t')
		b.WriteString(string(e.Kind))
		b.WriteByte('\t')
		b.WriteString(e.Label)
		b.WriteByte('\t')
		b.WriteString(e.Detail)
		if e.Resolved() {
			b.WriteByte('\t')
			b.WriteString(e.ResolvedAt.Format(time.RFC3339))
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
