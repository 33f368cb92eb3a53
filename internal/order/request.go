package order

import "time"

// Phase is the lifecycle position of a payment request.
type Phase int

const (
	// Unrequested means no request has been made.
	Unrequested Phase = iota
	// Pending means a request awaits admin review.
	Pending
	// Approved means the admin accepted the proof of payment.
	Approved
	// Rejected means the admin declined the proof of payment.
	Rejected
)

func (p Phase) String() string {
	switch p {
	case Unrequested:
		return "unrequested"
	case Pending:
		return "pending"
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Request is a proof-of-payment request awaiting or past review.
//
// The zero value is Unrequested. Use NewRequest to start a cycle and
// Approve/Reject to resolve it; each returns a new value.
type Request struct {
	phase       Phase
	requestedAt time.Time
	resolvedAt  time.Time

	Price   int
	SlipURL string
}

// NewRequest starts a fresh pending cycle. Any previous outcome is gone.
func NewRequest(at time.Time, price int, slipURL string) Request {
	return Request{
		phase:       Pending,
		requestedAt: at.UTC(),
		Price:       price,
		SlipURL:     slipURL,
	}
}

// Phase returns the current phase.
func (r Request) Phase() Phase { return r.phase }

// IsPending reports whether the request awaits review.
func (r Request) IsPending() bool { return r.phase == Pending }

// RequestedAt returns the request instant. Zero when Unrequested.
func (r Request) RequestedAt() time.Time { return r.requestedAt }

// ResolvedAt returns the approval or rejection instant.
func (r Request) ResolvedAt() (time.Time, bool) {
	if r.phase == Approved || r.phase == Rejected {
		return r.resolvedAt, true
	}
	return time.Time{}, false
}

// ApprovedAt returns the approval instant when approved.
func (r Request) ApprovedAt() (time.Time, bool) {
	if r.phase == Approved {
		return r.resolvedAt, true
	}
	return time.Time{}, false
}

// RejectedAt returns the rejection instant when rejected.
func (r Request) RejectedAt() (time.Time, bool) {
	if r.phase == Rejected {
		return r.resolvedAt, true
	}
	return time.Time{}, false
}

// Approve resolves the request as approved at the given instant.
// An Unrequested value stays Unrequested.
func (r Request) Approve(at time.Time) Request {
	if r.phase == Unrequested {
		return r
	}
	r.phase = Approved
	r.resolvedAt = at.UTC()
	return r
}

// Reject resolves the request as rejected at the given instant.
// An Unrequested value stays Unrequested.
func (r Request) Reject(at time.Time) Request {
	if r.phase == Unrequested {
		return r
	}
	r.phase = Rejected
	r.resolvedAt = at.UTC()
	return r
}

// ExtensionRequest is a renewal purchase.
type ExtensionRequest struct {
	Request
	Days        int
	SpecialLink bool
}

// PaidEdit is a purchased content edit. Approval unlocks exactly one edit;
// applying it records AppliedAt.
type PaidEdit struct {
	Request
	appliedAt time.Time
}

// AppliedAt returns when the unlocked edit was consumed.
func (p PaidEdit) AppliedAt() (time.Time, bool) {
	if p.phase == Approved && !p.appliedAt.IsZero() {
		return p.appliedAt, true
	}
	return time.Time{}, false
}

// Unlocked reports an approved payment whose edit has not been applied.
func (p PaidEdit) Unlocked() bool {
	return p.phase == Approved && p.appliedAt.IsZero()
}

// Apply marks the unlocked edit consumed. No-op unless Unlocked.
func (p PaidEdit) Apply(at time.Time) PaidEdit {
	if p.Unlocked() {
		p.appliedAt = at.UTC()
	}
	return p
}

// restoreRequest rebuilds a Request from stored instants. Absent
// requested_at yields Unrequested. Approval wins if both outcomes were
// stored by an older writer.
func restoreRequest(requestedAt, approvedAt, rejectedAt time.Time, price int, slipURL string) Request {
	if requestedAt.IsZero() {
		return Request{}
	}
	r := Request{phase: Pending, requestedAt: requestedAt, Price: price, SlipURL: slipURL}
	switch {
	case !approvedAt.IsZero():
		r.phase = Approved
		r.resolvedAt = approvedAt
	case !rejectedAt.IsZero():
		r.phase = Rejected
		r.resolvedAt = rejectedAt
	}
	return r
}

// NewExtensionRequest starts a fresh pending extension cycle.
func NewExtensionRequest(at time.Time, days, price int, specialLink bool, slipURL string) ExtensionRequest {
	return ExtensionRequest{
		Request:     NewRequest(at, price, slipURL),
		Days:        days,
		SpecialLink: specialLink,
	}
}

// Approve resolves the extension as approved.
func (e ExtensionRequest) Approve(at time.Time) ExtensionRequest {
	e.Request = e.Request.Approve(at)
	return e
}

// Reject resolves the extension as rejected.
func (e ExtensionRequest) Reject(at time.Time) ExtensionRequest {
	e.Request = e.Request.Reject(at)
	return e
}

// NewPaidEdit starts a fresh pending paid-edit cycle.
func NewPaidEdit(at time.Time, price int, slipURL string) PaidEdit {
	return PaidEdit{Request: NewRequest(at, price, slipURL)}
}

// Approve resolves the payment as approved. An already applied edit stays
// applied.
func (p PaidEdit) Approve(at time.Time) PaidEdit {
	p.Request = p.Request.Approve(at)
	return p
}

// Reject resolves the payment as rejected.
func (p PaidEdit) Reject(at time.Time) PaidEdit {
	p.Request = p.Request.Reject(at)
	p.appliedAt = time.Time{}
	return p
}

func restorePaidEdit(r Request, appliedAt time.Time) PaidEdit {
	p := PaidEdit{Request: r}
	if r.phase == Approved {
		p.appliedAt = appliedAt
	}
	return p
}
