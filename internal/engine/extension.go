package engine

import (
	"context"
	"time"

	"github.com/roach88/storypage/internal/blobstore"
	"github.com/roach88/storypage/internal/order"
	"github.com/roach88/storypage/internal/tier"
)

// ExtensionInput is a renewal purchase.
type ExtensionInput struct {
	// Days selects the tier's extension package.
	Days int

	// SpecialLink adds the flat-priced special link add-on.
	SpecialLink bool

	// Slip is the proof of payment.
	Slip blobstore.File
}

// RequestExtension records a pending extension and uploads its proof of
// payment. A pending request is overwritten; any previous outcome is
// cleared.
//
// The price is the package price plus the special link price when the add-on
// is requested. Requesting the add-on for an order that already owns a
// special link fails with ErrCodeSpecialLinkOwned.
func (e *Engine) RequestExtension(ctx context.Context, id string, in ExtensionInput) error {
	return e.change(ctx, "request_extension", id, func(r *order.Record, t tier.Tier, now time.Time) error {
		if err := requireApproved(r); err != nil {
			return err
		}
		if in.SpecialLink && r.HasSpecialLink() {
			return invalid(ErrCodeSpecialLinkOwned, "special_link", "order already has a special link")
		}
		pkg, ok := t.Package(in.Days)
		if !ok {
			return invalid(ErrCodeUnknownPackage, order.FieldExtensionDays,
				"tier %s has no %d-day extension", t.ID, in.Days)
		}
		if err := requireFile(in.Slip, order.FieldExtensionSlipURL); err != nil {
			return err
		}

		price := pkg.Price
		if in.SpecialLink {
			price += e.tiers.SpecialLinkPrice()
		}

		urls, err := e.upload(ctx, blobstore.ExtensionSlips, r.ID, in.Slip)
		if err != nil {
			return err
		}
		r.Extension = order.NewExtensionRequest(now, pkg.Days, price, in.SpecialLink, urls[0])
		return nil
	})
}

// ApproveExtension accepts the pending extension. The new expiration is
// counted from the current one, or from now if the order has already
// expired, so a lapsed period is never owed.
//
// An order that was never approved fails with ErrCodeNotApproved. An
// approved special link add-on grants the order its special link.
func (e *Engine) ApproveExtension(ctx context.Context, id string) error {
	return e.change(ctx, "approve_extension", id, func(r *order.Record, _ tier.Tier, now time.Time) error {
		if err := requireApproved(r); err != nil {
			return err
		}
		if !r.Extension.IsPending() {
			return invalid(ErrCodeNoRequest, order.FieldExtensionRequestedAt, "no pending extension request")
		}

		base := r.ExpiresAt
		if base.IsZero() || r.IsExpired(now) {
			base = now
		}
		r.ExpiresAt = base.Add(tier.Days(r.Extension.Days))
		if r.Extension.SpecialLink {
			r.SpecialLinkGranted = true
		}
		r.Extension = r.Extension.Approve(now)
		return nil
	})
}

// RejectExtension declines the pending extension. expires_at is untouched.
func (e *Engine) RejectExtension(ctx context.Context, id string) error {
	return e.change(ctx, "reject_extension", id, func(r *order.Record, _ tier.Tier, now time.Time) error {
		if !r.Extension.IsPending() {
			return invalid(ErrCodeNoRequest, order.FieldExtensionRequestedAt, "no pending extension request")
		}
		r.Extension = r.Extension.Reject(now)
		return nil
	})
}
