package engine

import (
	"context"
	"time"

	"github.com/roach88/storypage/internal/blobstore"
	"github.com/roach88/storypage/internal/entitlement"
	"github.com/roach88/storypage/internal/order"
	"github.com/roach88/storypage/internal/tier"
)

// TextEdit replaces the display text of an order.
type TextEdit struct {
	Message    string `json:"message"`
	SignOff    string `json:"sign_off"`
	TargetName string `json:"target_name"`
	PIN        string `json:"pin" validate:"omitempty,len=4,numeric"`
}

// TimelineEdit replaces the timeline entries of an order.
type TimelineEdit struct {
	Timeline []order.TimelineEntry `json:"timeline" validate:"required,min=1,dive"`
}

// editSlot decides how an edit of kind is paid for. Free quota is used
// first; otherwise an approved, unapplied paid edit is consumed.
func editSlot(r *order.Record, t tier.Tier, kind order.EditKind) (paid bool, err error) {
	if err := requireApproved(r); err != nil {
		return false, err
	}
	switch {
	case entitlement.CanFreeEdit(r, t, kind):
		return false, nil
	case entitlement.PaidEditUnlocked(r, kind):
		return true, nil
	case entitlement.PaymentPending(r, kind):
		return false, invalid(ErrCodeQuotaExceeded, string(kind),
			"no free %s edits left and the paid edit awaits approval", kind)
	}
	return false, invalid(ErrCodeQuotaExceeded, string(kind), "no free %s edits left", kind)
}

func checkKind(kind order.EditKind) error {
	if _, err := order.ParseEditKind(string(kind)); err != nil {
		return invalid(ErrCodeInvalidField, "kind", "%v", err)
	}
	return nil
}

// consumeEdit bumps the used counter and marks a paid edit applied.
func consumeEdit(r *order.Record, kind order.EditKind, paid bool, now time.Time) {
	if paid {
		r.SetPaidEdit(kind, r.PaidEdit(kind).Apply(now))
	}
	r.IncrementEdits(kind)
}

// EditText overwrites the message, sign-off, target name, and PIN. It
// consumes one text edit.
func (e *Engine) EditText(ctx context.Context, id string, in TextEdit) error {
	return e.change(ctx, "edit_text", id, func(r *order.Record, t tier.Tier, now time.Time) error {
		if err := e.checkStruct(in); err != nil {
			return err
		}
		c := r.Content
		c.Message, c.SignOff, c.TargetName, c.PIN = in.Message, in.SignOff, in.TargetName, in.PIN
		if tpl, ok := t.Template(r.TemplateID); ok {
			if err := checkTemplateContent(tpl, c); err != nil {
				return err
			}
		}
		paid, err := editSlot(r, t, order.EditText)
		if err != nil {
			return err
		}
		r.Content = c
		consumeEdit(r, order.EditText, paid, now)
		return nil
	})
}

// EditTimeline overwrites the timeline entries. It consumes one text edit.
func (e *Engine) EditTimeline(ctx context.Context, id string, in TimelineEdit) error {
	return e.change(ctx, "edit_timeline", id, func(r *order.Record, t tier.Tier, now time.Time) error {
		if err := e.checkStruct(in); err != nil {
			return err
		}
		paid, err := editSlot(r, t, order.EditText)
		if err != nil {
			return err
		}
		r.Content.Timeline = append([]order.TimelineEntry(nil), in.Timeline...)
		consumeEdit(r, order.EditText, paid, now)
		return nil
	})
}

// EditImages uploads a new image list and replaces the old one. It consumes
// one image edit.
func (e *Engine) EditImages(ctx context.Context, id string, files []blobstore.File) error {
	return e.change(ctx, "edit_images", id, func(r *order.Record, t tier.Tier, now time.Time) error {
		if err := checkImages(t, files, true); err != nil {
			return err
		}
		paid, err := editSlot(r, t, order.EditImage)
		if err != nil {
			return err
		}
		urls, err := e.upload(ctx, blobstore.EditImages, r.ID, files...)
		if err != nil {
			return err
		}
		r.Images = urls
		consumeEdit(r, order.EditImage, paid, now)
		return nil
	})
}

// RequestPaidEdit records a pending payment for one edit of kind. It is
// only allowed once the free quota of kind is used up. The price comes from
// the tier.
func (e *Engine) RequestPaidEdit(ctx context.Context, id string, kind order.EditKind, slip blobstore.File) error {
	return e.change(ctx, "request_paid_edit", id, func(r *order.Record, t tier.Tier, now time.Time) error {
		if err := checkKind(kind); err != nil {
			return err
		}
		if err := requireApproved(r); err != nil {
			return err
		}
		if entitlement.CanFreeEdit(r, t, kind) {
			return invalid(ErrCodeQuotaAvailable, string(kind),
				"%d free %s edits left", entitlement.FreeRemaining(r, t, kind), kind)
		}
		if entitlement.PaidEditUnlocked(r, kind) {
			return invalid(ErrCodeUnappliedPayment, string(kind),
				"an approved %s edit has not been used yet", kind)
		}
		if err := requireFile(slip, string(kind)+"_edit_payment_slip_url"); err != nil {
			return err
		}
		urls, err := e.upload(ctx, blobstore.EditSlips, r.ID, slip)
		if err != nil {
			return err
		}
		r.SetPaidEdit(kind, order.NewPaidEdit(now, entitlement.EditPrice(t, kind), urls[0]))
		return nil
	})
}

// ApprovePaidEdit accepts the pending payment of kind. It unlocks one edit
// but neither changes content nor bumps the used counter; the next edit of
// kind does that.
func (e *Engine) ApprovePaidEdit(ctx context.Context, id string, kind order.EditKind) error {
	return e.change(ctx, "approve_paid_edit", id, func(r *order.Record, _ tier.Tier, now time.Time) error {
		if err := checkKind(kind); err != nil {
			return err
		}
		p := r.PaidEdit(kind)
		if !p.IsPending() {
			return invalid(ErrCodeNoRequest, string(kind), "no pending %s edit payment", kind)
		}
		r.SetPaidEdit(kind, p.Approve(now))
		return nil
	})
}

// RejectPaidEdit declines the pending payment of kind.
func (e *Engine) RejectPaidEdit(ctx context.Context, id string, kind order.EditKind) error {
	return e.change(ctx, "reject_paid_edit", id, func(r *order.Record, _ tier.Tier, now time.Time) error {
		if err := checkKind(kind); err != nil {
			return err
		}
		p := r.PaidEdit(kind)
		if !p.IsPending() {
			return invalid(ErrCodeNoRequest, string(kind), "no pending %s edit payment", kind)
		}
		r.SetPaidEdit(kind, p.Reject(now))
		return nil
	})
}
