package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/storypage/internal/blobstore"
	"github.com/roach88/storypage/internal/docstore"
	"github.com/roach88/storypage/internal/order"
	"github.com/roach88/storypage/internal/tier"
)

// CreateInput is a checkout submission.
type CreateInput struct {
	Tier         tier.ID       `json:"tier_id" validate:"required"`
	TemplateID   string        `json:"template_id" validate:"required"`
	Content      order.Content `json:"content"`
	CustomDomain string        `json:"custom_domain" validate:"omitempty,hostname_rfc1123"`

	PaymentSlip blobstore.File   `json:"-" validate:"-"`
	Images      []blobstore.File `json:"-" validate:"-"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct runs tag validation and converts the first failure.
func (e *Engine) checkStruct(v any) error {
	err := e.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate input: %w", err)
	}
	fe := fieldErrs[0]
	if fe.Tag() == "required" {
		return invalid(ErrCodeMissingField, fe.Field(), "%s is required", fe.Field())
	}
	return invalid(ErrCodeInvalidField, fe.Field(), "%s fails %q", fe.Field(), fe.Tag())
}

// validateCreate enforces the tier-dependent checkout rules.
func (e *Engine) validateCreate(ctx context.Context, in CreateInput) (tier.Tier, error) {
	if err := e.checkStruct(in); err != nil {
		return tier.Tier{}, err
	}
	t, ok := e.tiers.Get(in.Tier)
	if !ok {
		return tier.Tier{}, invalid(ErrCodeUnknownTier, order.FieldTier, "tier %q is not configured", in.Tier)
	}
	tpl, ok := t.Template(in.TemplateID)
	if !ok {
		return tier.Tier{}, invalid(ErrCodeInvalidField, order.FieldTemplate,
			"template %q is not available for tier %s", in.TemplateID, t.ID)
	}
	if err := checkTemplateContent(tpl, in.Content); err != nil {
		return tier.Tier{}, err
	}

	switch {
	case t.CustomDomain == tier.DomainRequired && in.CustomDomain == "":
		return tier.Tier{}, invalid(ErrCodeMissingField, order.FieldCustomDomain,
			"tier %s requires a custom domain", t.ID)
	case !t.OffersCustomDomain() && in.CustomDomain != "":
		return tier.Tier{}, invalid(ErrCodeInvalidField, order.FieldCustomDomain,
			"tier %s does not offer a custom domain", t.ID)
	}
	if in.CustomDomain != "" {
		if err := e.checkDomainFree(ctx, in.CustomDomain, ""); err != nil {
			return tier.Tier{}, err
		}
	}

	if err := requireFile(in.PaymentSlip, order.FieldPaymentSlipURL); err != nil {
		return tier.Tier{}, err
	}
	if err := checkImages(t, in.Images, false); err != nil {
		return tier.Tier{}, err
	}
	return t, nil
}

// checkTemplateContent enforces the fields a template cannot render without.
func checkTemplateContent(tpl tier.Template, c order.Content) error {
	if tpl.Locked {
		for _, f := range []struct{ name, value string }{
			{order.FieldPIN, c.PIN},
			{order.FieldTargetName, c.TargetName},
			{order.FieldMessage, c.Message},
		} {
			if f.value == "" {
				return invalid(ErrCodeMissingField, f.name, "template %s requires %s", tpl.ID, f.name)
			}
		}
	}
	if tpl.Timeline && len(c.Timeline) == 0 {
		return invalid(ErrCodeMissingField, order.FieldTimeline, "template %s requires timeline entries", tpl.ID)
	}
	return nil
}

// checkImages bounds the image count by the tier. An edit must replace the
// list with at least one image.
func checkImages(t tier.Tier, files []blobstore.File, required bool) error {
	if required && len(files) == 0 {
		return invalid(ErrCodeMissingField, order.FieldImages, "at least one image is required")
	}
	if len(files) > t.MaxImages {
		return invalid(ErrCodeInvalidField, order.FieldImages,
			"tier %s allows at most %d images, got %d", t.ID, t.MaxImages, len(files))
	}
	for i, f := range files {
		if len(f.Data) == 0 {
			return invalid(ErrCodeMissingField, order.FieldImages, "image %d (%s) is empty", i, f.Name)
		}
	}
	return nil
}

// normalizeDomain folds a host name to the form it is stored and queried in.
func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// checkDomainFree fails when another order already serves domain.
func (e *Engine) checkDomainFree(ctx context.Context, domain, self string) error {
	docs, err := e.docs.Query(ctx, order.Collection, order.FieldCustomDomain, domain)
	if err != nil {
		return fmt.Errorf("look up domain %s: %w", domain, err)
	}
	for _, d := range docs {
		if d.ID != self {
			return invalid(ErrCodeInvalidField, order.FieldCustomDomain,
				"domain %s is already assigned to another order", domain)
		}
	}
	return nil
}

// Create validates a checkout, uploads its files, and writes a pending
// order. It returns the new public id.
//
// The id is allocated before uploading so object paths can carry it; the
// document is written only after every upload succeeds.
func (e *Engine) Create(ctx context.Context, in CreateInput) (id string, err error) {
	start := time.Now()
	defer func() { e.finish("create", id, start, err) }()

	in.CustomDomain = normalizeDomain(in.CustomDomain)
	t, err := e.validateCreate(ctx, in)
	if err != nil {
		return "", err
	}

	id, err = e.ids.Generate(ctx)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}

	slip, err := e.upload(ctx, blobstore.PaymentSlips, id, in.PaymentSlip)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	images, err := e.upload(ctx, blobstore.ContentImages, id, in.Images...)
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}

	price := t.Price
	if t.CustomDomain == tier.DomainAddon && in.CustomDomain != "" {
		price += e.tiers.SpecialLinkPrice()
	}

	r := &order.Record{
		ID:             id,
		Tier:           t.ID,
		Price:          price,
		TemplateID:     in.TemplateID,
		CustomDomain:   in.CustomDomain,
		PaymentSlipURL: slip[0],
		Content:        in.Content,
		Images:         images,
		Status:         order.StatusPending,
		CreatedAt:      e.now(),
	}
	r.Content.Timeline = append([]order.TimelineEntry(nil), in.Content.Timeline...)
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}

	fields := r.ToFields()
	fields[order.FieldUpdatedAt] = docstore.ServerTimestamp
	if err := e.docs.Set(ctx, order.Collection, id, fields, docstore.Replace); err != nil {
		return "", fmt.Errorf("create order: write %s: %w", id, err)
	}
	return id, nil
}
