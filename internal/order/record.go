package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/storypage/internal/tier"
)

// Collection is the document collection holding order records.
const Collection = "orders"

// Status is the primary review status of an order.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// EditKind selects one of the two independent edit quotas.
type EditKind string

const (
	EditText  EditKind = "text"
	EditImage EditKind = "image"
)

// ParseEditKind validates an edit kind string.
func ParseEditKind(s string) (EditKind, error) {
	switch EditKind(s) {
	case EditText, EditImage:
		return EditKind(s), nil
	}
	return "", fmt.Errorf("unknown edit kind %q (want text or image)", s)
}

// TimelineEntry is one item of a timeline template.
type TimelineEntry struct {
	Date     string `yaml:"date" json:"date" validate:"required"`
	Title    string `yaml:"title" json:"title" validate:"required"`
	Body     string `yaml:"body,omitempty" json:"body,omitempty"`
	ImageURL string `yaml:"image_url,omitempty" json:"image_url,omitempty"`
}

// Content holds the buyer-entered display fields.
type Content struct {
	Message    string          `yaml:"message" json:"message"`
	SignOff    string          `yaml:"sign_off" json:"sign_off"`
	TargetName string          `yaml:"target_name" json:"target_name"`
	PIN        string          `yaml:"pin,omitempty" json:"pin,omitempty" validate:"omitempty,len=4,numeric"`
	Timeline   []TimelineEntry `yaml:"timeline,omitempty" json:"timeline,omitempty" validate:"dive"`
}

// Record is one purchase and its whole lifecycle.
type Record struct {
	// Identity & commerce
	ID                 string
	Tier               tier.ID
	Price              int
	TemplateID         string
	CustomDomain       string
	SpecialLinkGranted bool
	PaymentSlipURL     string

	// Content
	Content Content
	Images  []string

	// Primary status
	Status     Status
	CreatedAt  time.Time
	ApprovedAt time.Time
	RejectedAt time.Time
	ExpiresAt  time.Time

	Extension ExtensionRequest

	TextEditsUsed    int
	ImageEditsUsed   int
	TextEditPayment  PaidEdit
	ImageEditPayment PaidEdit

	UpdatedAt time.Time
}

// Approve marks the order approved and drops any rejection instant.
func (r *Record) Approve(at time.Time) {
	r.Status = StatusApproved
	r.ApprovedAt = at.UTC()
	r.RejectedAt = time.Time{}
}

// Reject marks the order rejected and drops any approval instant.
func (r *Record) Reject(at time.Time) {
	r.Status = StatusRejected
	r.RejectedAt = at.UTC()
	r.ApprovedAt = time.Time{}
}

// IsExpired reports whether the page has lapsed at now. An order without
// an expiration has never been published and is not expired.
func (r *Record) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// IsServing reports whether the page is live at now. A rejected order keeps
// any earlier expiration but does not serve.
func (r *Record) IsServing(now time.Time) bool {
	return r.Status == StatusApproved && !r.IsExpired(now)
}

// HasSpecialLink reports whether the order already owns a special link,
// either as a granted domain or as a purchased add-on.
func (r *Record) HasSpecialLink() bool {
	return r.CustomDomain != "" || r.SpecialLinkGranted
}

// Slug is the address the page is served under.
func (r *Record) Slug() string {
	if r.CustomDomain != "" {
		return r.CustomDomain
	}
	return r.ID
}

// EditsUsed returns the used counter for kind.
func (r *Record) EditsUsed(kind EditKind) int {
	if kind == EditImage {
		return r.ImageEditsUsed
	}
	return r.TextEditsUsed
}

// IncrementEdits bumps the used counter for kind by one.
func (r *Record) IncrementEdits(kind EditKind) {
	if kind == EditImage {
		r.ImageEditsUsed++
		return
	}
	r.TextEditsUsed++
}

// PaidEdit returns the paid-edit sub-state for kind.
func (r *Record) PaidEdit(kind EditKind) PaidEdit {
	if kind == EditImage {
		return r.ImageEditPayment
	}
	return r.TextEditPayment
}

// SetPaidEdit replaces the paid-edit sub-state for kind.
func (r *Record) SetPaidEdit(kind EditKind, p PaidEdit) {
	if kind == EditImage {
		r.ImageEditPayment = p
		return
	}
	r.TextEditPayment = p
}

// Clone returns a deep copy safe to mutate.
func (r *Record) Clone() *Record {
	c := *r
	c.Images = append([]string(nil), r.Images...)
	c.Content.Timeline = append([]TimelineEntry(nil), r.Content.Timeline...)
	return &c
}

// ErrInvariant is wrapped by every Validate failure.
var ErrInvariant = errors.New("order invariant violated")

// Validate checks the record invariants.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvariant)
	}
	switch r.Status {
	case StatusPending:
		if !r.ApprovedAt.IsZero() || !r.RejectedAt.IsZero() {
			return fmt.Errorf("%w: pending order carries an outcome instant", ErrInvariant)
		}
	case StatusApproved:
		if r.ApprovedAt.IsZero() || !r.RejectedAt.IsZero() {
			return fmt.Errorf("%w: approved order must carry only approved_at", ErrInvariant)
		}
	case StatusRejected:
		if r.RejectedAt.IsZero() || !r.ApprovedAt.IsZero() {
			return fmt.Errorf("%w: rejected order must carry only rejected_at", ErrInvariant)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvariant, r.Status)
	}
	if r.TextEditsUsed < 0 || r.ImageEditsUsed < 0 {
		return fmt.Errorf("%w: negative edit counter", ErrInvariant)
	}
	if r.Extension.Phase() != Unrequested && r.Extension.Days <= 0 {
		return fmt.Errorf("%w: extension request without days", ErrInvariant)
	}
	return nil
}
