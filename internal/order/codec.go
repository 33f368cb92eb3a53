package order

import (
	"bytes"
	"fmt"
	"time"

	"github.com/roach88/storypage/internal/docstore"
	"github.com/roach88/storypage/internal/tier"
)

// Stored field names.
const (
	FieldID                 = "id"
	FieldTier               = "tier_id"
	FieldPrice              = "price"
	FieldTemplate           = "template_id"
	FieldCustomDomain       = "custom_domain"
	FieldSpecialLinkGranted = "special_link_granted"
	FieldPaymentSlipURL     = "payment_slip_url"
	FieldMessage            = "message"
	FieldSignOff            = "sign_off"
	FieldTargetName         = "target_name"
	FieldPIN                = "pin"
	FieldTimeline           = "timeline"
	FieldImages             = "images"
	FieldStatus             = "status"
	FieldCreatedAt          = "created_at"
	FieldApprovedAt         = "approved_at"
	FieldRejectedAt         = "rejected_at"
	FieldExpiresAt          = "expires_at"
	FieldTextEditsUsed      = "text_edits_used"
	FieldImageEditsUsed     = "image_edits_used"
	FieldUpdatedAt          = "updated_at"

	FieldExtensionDays        = "extension_days"
	FieldExtensionPrice       = "extension_price"
	FieldExtensionSpecialLink = "extension_special_link"
	FieldExtensionSlipURL     = "extension_slip_url"
	FieldExtensionRequestedAt = "extension_requested_at"
	FieldExtensionApprovedAt  = "extension_approved_at"
	FieldExtensionRejectedAt  = "extension_rejected_at"
)

// IndexedFields are the fields orders are looked up by besides their id.
var IndexedFields = []string{FieldCustomDomain}

// paymentField names a paid-edit field, e.g. text_edit_payment_slip_url.
func paymentField(kind EditKind, suffix string) string {
	return string(kind) + "_edit_payment_" + suffix
}

// ToFields renders the record in its stored layout. Unset optional fields
// are omitted.
func (r *Record) ToFields() docstore.Fields {
	f := docstore.Fields{
		FieldID:             r.ID,
		FieldTier:           string(r.Tier),
		FieldPrice:          r.Price,
		FieldTemplate:       r.TemplateID,
		FieldMessage:        r.Content.Message,
		FieldSignOff:        r.Content.SignOff,
		FieldTargetName:     r.Content.TargetName,
		FieldImages:         append([]string{}, r.Images...),
		FieldStatus:         string(r.Status),
		FieldTextEditsUsed:  r.TextEditsUsed,
		FieldImageEditsUsed: r.ImageEditsUsed,
	}

	putString(f, FieldCustomDomain, r.CustomDomain)
	putString(f, FieldPaymentSlipURL, r.PaymentSlipURL)
	putString(f, FieldPIN, r.Content.PIN)
	if r.SpecialLinkGranted {
		f[FieldSpecialLinkGranted] = true
	}
	if len(r.Content.Timeline) > 0 {
		entries := make([]any, len(r.Content.Timeline))
		for i, e := range r.Content.Timeline {
			m := map[string]any{"date": e.Date, "title": e.Title}
			if e.Body != "" {
				m["body"] = e.Body
			}
			if e.ImageURL != "" {
				m["image_url"] = e.ImageURL
			}
			entries[i] = m
		}
		f[FieldTimeline] = entries
	}

	putTime(f, FieldCreatedAt, r.CreatedAt)
	putTime(f, FieldApprovedAt, r.ApprovedAt)
	putTime(f, FieldRejectedAt, r.RejectedAt)
	putTime(f, FieldExpiresAt, r.ExpiresAt)
	putTime(f, FieldUpdatedAt, r.UpdatedAt)

	if ext := r.Extension; ext.Phase() != Unrequested {
		f[FieldExtensionDays] = ext.Days
		f[FieldExtensionPrice] = ext.Price
		f[FieldExtensionSpecialLink] = ext.SpecialLink
		putString(f, FieldExtensionSlipURL, ext.SlipURL)
		putTime(f, FieldExtensionRequestedAt, ext.RequestedAt())
		if at, ok := ext.ApprovedAt(); ok {
			putTime(f, FieldExtensionApprovedAt, at)
		}
		if at, ok := ext.RejectedAt(); ok {
			putTime(f, FieldExtensionRejectedAt, at)
		}
	}

	for _, kind := range []EditKind{EditText, EditImage} {
		p := r.PaidEdit(kind)
		if p.Phase() == Unrequested {
			continue
		}
		f[paymentField(kind, "price")] = p.Price
		putString(f, paymentField(kind, "slip_url"), p.SlipURL)
		putTime(f, paymentField(kind, "requested_at"), p.RequestedAt())
		if at, ok := p.ApprovedAt(); ok {
			putTime(f, paymentField(kind, "approved_at"), at)
		}
		if at, ok := p.RejectedAt(); ok {
			putTime(f, paymentField(kind, "rejected_at"), at)
		}
		if at, ok := p.AppliedAt(); ok {
			putTime(f, paymentField(kind, "applied_at"), at)
		}
	}

	return f
}

// FromFields rebuilds a record from its stored layout.
func FromFields(id string, f docstore.Fields) (*Record, error) {
	d := decoder{f: f}

	r := &Record{
		ID:                 id,
		Tier:               tier.ID(d.str(FieldTier)),
		Price:              d.num(FieldPrice),
		TemplateID:         d.str(FieldTemplate),
		CustomDomain:       d.str(FieldCustomDomain),
		SpecialLinkGranted: d.flag(FieldSpecialLinkGranted),
		PaymentSlipURL:     d.str(FieldPaymentSlipURL),
		Content: Content{
			Message:    d.str(FieldMessage),
			SignOff:    d.str(FieldSignOff),
			TargetName: d.str(FieldTargetName),
			PIN:        d.str(FieldPIN),
			Timeline:   d.timeline(FieldTimeline),
		},
		Images:         d.list(FieldImages),
		Status:         Status(d.str(FieldStatus)),
		CreatedAt:      d.instant(FieldCreatedAt),
		ApprovedAt:     d.instant(FieldApprovedAt),
		RejectedAt:     d.instant(FieldRejectedAt),
		ExpiresAt:      d.instant(FieldExpiresAt),
		TextEditsUsed:  d.num(FieldTextEditsUsed),
		ImageEditsUsed: d.num(FieldImageEditsUsed),
		UpdatedAt:      d.instant(FieldUpdatedAt),
	}

	r.Extension = ExtensionRequest{
		Request: restoreRequest(
			d.instant(FieldExtensionRequestedAt),
			d.instant(FieldExtensionApprovedAt),
			d.instant(FieldExtensionRejectedAt),
			d.num(FieldExtensionPrice),
			d.str(FieldExtensionSlipURL),
		),
		Days:        d.num(FieldExtensionDays),
		SpecialLink: d.flag(FieldExtensionSpecialLink),
	}

	for _, kind := range []EditKind{EditText, EditImage} {
		req := restoreRequest(
			d.instant(paymentField(kind, "requested_at")),
			d.instant(paymentField(kind, "approved_at")),
			d.instant(paymentField(kind, "rejected_at")),
			d.num(paymentField(kind, "price")),
			d.str(paymentField(kind, "slip_url")),
		)
		r.SetPaidEdit(kind, restorePaidEdit(req, d.instant(paymentField(kind, "applied_at"))))
	}

	if d.err != nil {
		return nil, fmt.Errorf("decode order %s: %w", id, d.err)
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return r, nil
}

// Diff returns the fields that turn before into after under a merge:
// changed or added fields carry the new value, removed fields carry
// docstore.Delete.
func Diff(before, after docstore.Fields) docstore.Fields {
	out := docstore.Fields{}
	for k, v := range after {
		old, ok := before[k]
		if !ok || !sameValue(old, v) {
			out[k] = v
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			out[k] = docstore.Delete
		}
	}
	return out
}

func sameValue(a, b any) bool {
	ab, errA := docstore.MarshalCanonical(a)
	bb, errB := docstore.MarshalCanonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func putString(f docstore.Fields, key, v string) {
	if v != "" {
		f[key] = v
	}
}

func putTime(f docstore.Fields, key string, t time.Time) {
	if !t.IsZero() {
		f[key] = t.UTC()
	}
}

// decoder reads typed values out of stored fields, remembering the first
// type mismatch.
type decoder struct {
	f   docstore.Fields
	err error
}

func (d *decoder) fail(key string, v any, want string) {
	if d.err == nil {
		d.err = fmt.Errorf("field %q: got %T, want %s", key, v, want)
	}
}

func (d *decoder) str(key string) string {
	v, ok := d.f[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail(key, v, "string")
	}
	return s
}

func (d *decoder) num(key string) int {
	v, ok := d.f[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	}
	d.fail(key, v, "integer")
	return 0
}

func (d *decoder) flag(key string) bool {
	v, ok := d.f[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		d.fail(key, v, "bool")
	}
	return b
}

func (d *decoder) instant(key string) time.Time {
	v, ok := d.f[key]
	if !ok {
		return time.Time{}
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	t, ok := docstore.ParseTime(v)
	if !ok {
		d.fail(key, v, "RFC 3339 instant")
	}
	return t
}

func (d *decoder) list(key string) []string {
	v, ok := d.f[key]
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, elem := range list {
			s, ok := elem.(string)
			if !ok {
				d.fail(key, elem, "string element")
				return nil
			}
			out = append(out, s)
		}
		return out
	}
	d.fail(key, v, "list")
	return nil
}

func (d *decoder) timeline(key string) []TimelineEntry {
	v, ok := d.f[key]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		d.fail(key, v, "list")
		return nil
	}
	out := make([]TimelineEntry, 0, len(list))
	for _, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			d.fail(key, elem, "object element")
			return nil
		}
		e := decoder{f: m}
		out = append(out, TimelineEntry{
			Date:     e.str("date"),
			Title:    e.str("title"),
			Body:     e.str("body"),
			ImageURL: e.str("image_url"),
		})
		if e.err != nil && d.err == nil {
			d.err = e.err
		}
	}
	return out
}
