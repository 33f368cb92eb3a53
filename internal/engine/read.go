package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/storypage/internal/entitlement"
	"github.com/roach88/storypage/internal/history"
	"github.com/roach88/storypage/internal/order"
	"github.com/roach88/storypage/internal/tier"
)

// Get returns the order with the given id.
func (e *Engine) Get(ctx context.Context, id string) (*order.Record, error) {
	return e.load(ctx, id)
}

// Resolve finds the order served under slug: first by id, then by custom
// domain.
func (e *Engine) Resolve(ctx context.Context, slug string) (*order.Record, error) {
	r, err := e.load(ctx, slug)
	if err == nil || !errors.Is(err, ErrOrderNotFound) {
		return r, err
	}
	docs, qerr := e.docs.Query(ctx, order.Collection, order.FieldCustomDomain, normalizeDomain(slug))
	if qerr != nil {
		return nil, fmt.Errorf("resolve %s: %w", slug, qerr)
	}
	if len(docs) == 0 {
		return nil, err
	}
	return order.FromFields(docs[0].ID, docs[0].Fields)
}

// View is the read model of one order.
type View struct {
	Record       *order.Record       `json:"-"`
	Tier         tier.Tier           `json:"-"`
	Slug         string              `json:"slug"`
	Status       order.Status        `json:"status"`
	ExpiresAt    time.Time           `json:"expires_at,omitzero"`
	Expired      bool                `json:"expired"`
	Serving      bool                `json:"serving"`
	Entitlements entitlement.Summary `json:"entitlements"`
	History      []history.Event     `json:"history"`
}

// Summary resolves slug and derives its expiry, entitlements, and history
// at the engine clock's current instant.
func (e *Engine) Summary(ctx context.Context, slug string) (*View, error) {
	r, err := e.Resolve(ctx, slug)
	if err != nil {
		return nil, err
	}
	t, ok := e.tiers.Get(r.Tier)
	if !ok {
		return nil, invalid(ErrCodeUnknownTier, order.FieldTier, "tier %q is not configured", r.Tier)
	}
	return &View{
		Record:       r,
		Tier:         t,
		Slug:         r.Slug(),
		Status:       r.Status,
		ExpiresAt:    r.ExpiresAt,
		Expired:      r.IsExpired(e.now()),
		Serving:      r.IsServing(e.now()),
		Entitlements: entitlement.Summarize(r, t),
		History:      history.Project(r),
	}, nil
}
