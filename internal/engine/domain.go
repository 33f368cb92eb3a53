package engine

import (
	"context"
	"time"

	"github.com/roach88/storypage/internal/order"
	"github.com/roach88/storypage/internal/tier"
)

// AssignCustomDomain attaches a custom domain or subdomain to an order.
// The tier must offer one, or the order must have been granted a special
// link through an approved extension. A domain serves one order only.
func (e *Engine) AssignCustomDomain(ctx context.Context, id, domain string) error {
	domain = normalizeDomain(domain)
	return e.change(ctx, "assign_domain", id, func(r *order.Record, t tier.Tier, _ time.Time) error {
		if err := e.validate.Var(domain, "required,hostname_rfc1123"); err != nil {
			return invalid(ErrCodeInvalidField, order.FieldCustomDomain, "%q is not a valid host name", domain)
		}
		if !t.OffersCustomDomain() && !r.SpecialLinkGranted {
			return invalid(ErrCodeInvalidField, order.FieldCustomDomain,
				"tier %s does not offer a custom domain and no special link was purchased", t.ID)
		}
		if err := e.checkDomainFree(ctx, domain, r.ID); err != nil {
			return err
		}
		r.CustomDomain = domain
		return nil
	})
}
