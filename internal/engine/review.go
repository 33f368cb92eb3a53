package engine

import (
	"context"
	"time"

	"github.com/roach88/storypage/internal/order"
	"github.com/roach88/storypage/internal/tier"
)

// Approve publishes an order: status approved, approved_at now, and
// expires_at now + the tier's base duration.
//
// Re-approving is allowed as a manual override and restarts a lapsed
// window. A later expiration already on the record is kept so expires_at
// never moves backward.
func (e *Engine) Approve(ctx context.Context, id string) error {
	return e.change(ctx, "approve", id, func(r *order.Record, t tier.Tier, now time.Time) error {
		r.Approve(now)
		if exp := now.Add(t.BaseDuration()); exp.After(r.ExpiresAt) {
			r.ExpiresAt = exp
		}
		return nil
	})
}

// Reject declines an order's proof of payment. No expiration is set.
func (e *Engine) Reject(ctx context.Context, id string) error {
	return e.change(ctx, "reject", id, func(r *order.Record, _ tier.Tier, now time.Time) error {
		r.Reject(now)
		return nil
	})
}
