// Package entitlement derives edit eligibility from an order and its tier.
//
// Nothing here is persisted. Every value is recomputed from the stored
// counters and paid-edit sub-states on each read, so the counters and the
// derived eligibility cannot drift apart.
package entitlement

import (
	"github.com/roach88/storypage/internal/order"
	"github.com/roach88/storypage/internal/tier"
)

// FreeQuota is the tier's free edit allowance for kind.
func FreeQuota(t tier.Tier, kind order.EditKind) int {
	if kind == order.EditImage {
		return t.FreeImageEdits
	}
	return t.FreeTextEdits
}

// EditPrice is the fixed price of one paid edit of kind.
func EditPrice(t tier.Tier, kind order.EditKind) int {
	if kind == order.EditImage {
		return t.ImageEditPrice
	}
	return t.TextEditPrice
}

// FreeRemaining is max(0, quota - used) for kind.
func FreeRemaining(r *order.Record, t tier.Tier, kind order.EditKind) int {
	return max(0, FreeQuota(t, kind)-r.EditsUsed(kind))
}

// FreeTextRemaining is the number of free text edits left.
func FreeTextRemaining(r *order.Record, t tier.Tier) int {
	return FreeRemaining(r, t, order.EditText)
}

// FreeImageRemaining is the number of free image edits left.
func FreeImageRemaining(r *order.Record, t tier.Tier) int {
	return FreeRemaining(r, t, order.EditImage)
}

// CanFreeEdit reports whether an edit of kind can be taken from the free quota.
func CanFreeEdit(r *order.Record, t tier.Tier, kind order.EditKind) bool {
	return FreeRemaining(r, t, kind) > 0
}

// PaymentPending reports a paid-edit request of kind awaiting review.
func PaymentPending(r *order.Record, kind order.EditKind) bool {
	return r.PaidEdit(kind).IsPending()
}

// PaidEditUnlocked reports an approved paid edit of kind not yet applied.
func PaidEditUnlocked(r *order.Record, kind order.EditKind) bool {
	return r.PaidEdit(kind).Unlocked()
}

// CanEdit reports whether an edit of kind may be saved now, either from
// the free quota or by consuming an unlocked paid edit.
func CanEdit(r *order.Record, t tier.Tier, kind order.EditKind) bool {
	return CanFreeEdit(r, t, kind) || PaidEditUnlocked(r, kind)
}

// Kind summarizes one edit kind.
type Kind struct {
	Used           int         `json:"used"`
	FreeQuota      int         `json:"free_quota"`
	FreeRemaining  int         `json:"free_remaining"`
	CanFreeEdit    bool        `json:"can_free_edit"`
	Payment        order.Phase `json:"-"`
	PaymentStatus  string      `json:"payment_status"`
	PaymentPending bool        `json:"payment_pending"`
	PaidUnlocked   bool        `json:"paid_unlocked"`
	PaidEditPrice  int         `json:"paid_edit_price"`
}

// Summary is the derived entitlement view of an order.
type Summary struct {
	Text  Kind `json:"text"`
	Image Kind `json:"image"`
}

// Summarize computes both edit kinds.
func Summarize(r *order.Record, t tier.Tier) Summary {
	return Summary{
		Text:  summarizeKind(r, t, order.EditText),
		Image: summarizeKind(r, t, order.EditImage),
	}
}

// For returns the summary of kind.
func (s Summary) For(kind order.EditKind) Kind {
	if kind == order.EditImage {
		return s.Image
	}
	return s.Text
}

func summarizeKind(r *order.Record, t tier.Tier, kind order.EditKind) Kind {
	p := r.PaidEdit(kind)
	return Kind{
		Used:           r.EditsUsed(kind),
		FreeQuota:      FreeQuota(t, kind),
		FreeRemaining:  FreeRemaining(r, t, kind),
		CanFreeEdit:    CanFreeEdit(r, t, kind),
		Payment:        p.Phase(),
		PaymentStatus:  p.Phase().String(),
		PaymentPending: p.IsPending(),
		PaidUnlocked:   p.Unlocked(),
		PaidEditPrice:  EditPrice(t, kind),
	}
}
