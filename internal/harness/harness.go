package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/storypage/internal/blobstore"
	"github.com/roach88/storypage/internal/docstore"
	"github.com/roach88/storypage/internal/engine"
	"github.com/roach88/storypage/internal/entitlement"
	"github.com/roach88/storypage/internal/history"
	"github.com/roach88/storypage/internal/order"
	"github.com/roach88/storypage/internal/testutil"
	"github.com/roach88/storypage/internal/tier"
)

// OrderID is the id every scenario order is created under.
const OrderID = "SCENARIO0000001"

// BlobBaseURL prefixes the URLs of uploaded scenario files.
const BlobBaseURL = "mem://blobs"

// ResultOK is the step result of an operation that succeeded.
const ResultOK = "ok"

// StepResult records one executed operation.
type StepResult struct {
	Op     string    `json:"op"`
	At     time.Time `json:"at"`
	Result string    `json:"result"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step matched its expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Errors holds expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Steps lists the create step followed by each scenario step.
	Steps []StepResult `json:"steps"`

	// Created is false when the order was never written.
	Created bool `json:"created"`

	// Fields is the stored document; Record is its decoded form.
	Fields docstore.Fields `json:"-"`
	Record *order.Record   `json:"-"`

	History      []history.Event     `json:"history"`
	Entitlements entitlement.Summary `json:"entitlements"`
	Expired      bool                `json:"expired"`

	// Uploads counts the objects written to blob storage.
	Uploads int `json:"uploads"`

	// Now is the clock reading after the last step.
	Now time.Time `json:"now"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}, Steps: []StepResult{}}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Harness drives one engine over isolated collaborators.
type Harness struct {
	eng   *engine.Engine
	docs  *docstore.SQLite
	blobs *blobstore.Memory
	clock *testutil.ManualClock
	seq   int
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store. A step whose outcome
// differs from its expectation is recorded in Result.Errors and execution
// continues. Errors returned from Run are infrastructure failures, not
// scenario failures.
func Run(scenario *Scenario) (*Result, error) {
	start, err := time.Parse(time.RFC3339, scenario.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	tiers, err := loadTiers(scenario.TierFile)
	if err != nil {
		return nil, err
	}

	clock := testutil.NewManualClock(start.UTC())
	docs, err := docstore.Open(":memory:",
		docstore.WithClock(clock.Now),
		docstore.WithIndex(order.IndexedFields...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer docs.Close()

	blobs := blobstore.NewMemory(BlobBaseURL)
	h := &Harness{
		eng: engine.New(docs, blobs, tiers,
			engine.WithClock(clock),
			engine.WithIDGenerator(testutil.NewFixedIDs(OrderID)),
			engine.WithLogger(slog.New(slog.DiscardHandler)),
		),
		docs:  docs,
		blobs: blobs,
		clock: clock,
	}

	ctx := context.Background()
	result := NewResult()

	created, err := h.create(ctx, scenario.Order, result)
	if err != nil {
		return nil, err
	}
	result.Created = created
	if created {
		for i, step := range scenario.Steps {
			if err := h.step(ctx, i, step, result); err != nil {
				return nil, err
			}
		}
		if err := h.capture(ctx, result); err != nil {
			return nil, err
		}
	}
	result.Uploads = len(h.blobs.Paths())
	result.Now = clock.Now()

	for i, a := range scenario.Assertions {
		if err := evaluate(a, result); err != nil {
			result.AddError("assertions[%d]: %v", i, err)
		}
	}
	return result, nil
}

func loadTiers(path string) (*tier.Table, error) {
	if path == "" {
		return tier.Default()
	}
	return tier.Load(path)
}

func (h *Harness) create(ctx context.Context, c Checkout, result *Result) (bool, error) {
	in := engine.CreateInput{
		Tier:         tier.ID(c.Tier),
		TemplateID:   c.Template,
		Content:      c.Content,
		CustomDomain: c.CustomDomain,
		Images:       h.images(c.Images),
	}
	if !c.NoSlip {
		in.PaymentSlip = h.slip()
	}

	_, err := h.eng.Create(ctx, in)
	outcome, ferr := outcomeOf(err)
	if ferr != nil {
		return false, fmt.Errorf("create: %w", ferr)
	}
	result.Steps = append(result.Steps, StepResult{Op: "create", At: h.clock.Now(), Result: outcome})
	expect(result, "create", c.ExpectError, outcome)
	return err == nil, nil
}

func (h *Harness) step(ctx context.Context, index int, s Step, result *Result) error {
	switch {
	case s.At != "":
		at, err := time.Parse(time.RFC3339, s.At)
		if err != nil {
			return fmt.Errorf("steps[%d].at: %w", index, err)
		}
		h.clock.Set(at.UTC())
	case s.Advance != "":
		d, err := time.ParseDuration(s.Advance)
		if err != nil {
			return fmt.Errorf("steps[%d].advance: %w", index, err)
		}
		h.clock.Advance(d)
	}

	outcome, err := outcomeOf(h.apply(ctx, s))
	if err != nil {
		return fmt.Errorf("steps[%d] (%s): %w", index, s.Op, err)
	}
	result.Steps = append(result.Steps, StepResult{Op: s.Op, At: h.clock.Now(), Result: outcome})
	expect(result, fmt.Sprintf("steps[%d] (%s)", index, s.Op), s.ExpectError, outcome)
	return nil
}

func (h *Harness) apply(ctx context.Context, s Step) error {
	slip := blobstore.File{}
	if !s.NoSlip {
		slip = h.slip()
	}

	switch s.Op {
	case OpApprove:
		return h.eng.Approve(ctx, OrderID)
	case OpReject:
		return h.eng.Reject(ctx, OrderID)
	case OpRequestExtension:
		return h.eng.RequestExtension(ctx, OrderID, engine.ExtensionInput{
			Days:        s.Days,
			SpecialLink: s.SpecialLink,
			Slip:        slip,
		})
	case OpApproveExtension:
		return h.eng.ApproveExtension(ctx, OrderID)
	case OpRejectExtension:
		return h.eng.RejectExtension(ctx, OrderID)
	case OpEditText:
		return h.eng.EditText(ctx, OrderID, engine.TextEdit{
			Message:    s.Message,
			SignOff:    s.SignOff,
			TargetName: s.TargetName,
			PIN:        s.PIN,
		})
	case OpEditTimeline:
		return h.eng.EditTimeline(ctx, OrderID, engine.TimelineEdit{Timeline: s.Timeline})
	case OpEditImages:
		return h.eng.EditImages(ctx, OrderID, h.images(s.Images))
	case OpRequestPaidEdit:
		return h.eng.RequestPaidEdit(ctx, OrderID, order.EditKind(s.Kind), slip)
	case OpApprovePaidEdit:
		return h.eng.ApprovePaidEdit(ctx, OrderID, order.EditKind(s.Kind))
	case OpRejectPaidEdit:
		return h.eng.RejectPaidEdit(ctx, OrderID, order.EditKind(s.Kind))
	case OpAssignDomain:
		return h.eng.AssignCustomDomain(ctx, OrderID, s.Domain)
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
}

// capture reads the final document and derives its views at the current
// clock reading.
func (h *Harness) capture(ctx context.Context, result *Result) error {
	fields, err := h.docs.Get(ctx, order.Collection, OrderID)
	if err != nil {
		return fmt.Errorf("read final document: %w", err)
	}
	view, err := h.eng.Summary(ctx, OrderID)
	if err != nil {
		return fmt.Errorf("summarize final document: %w", err)
	}
	result.Fields = fields
	result.Record = view.Record
	result.History = view.History
	result.Entitlements = view.Entitlements
	result.Expired = view.Expired
	return nil
}

func (h *Harness) slip() blobstore.File {
	h.seq++
	return blobstore.File{Name: "slip.png", Data: fmt.Appendf(nil, "slip %d", h.seq)}
}

func (h *Harness) images(n int) []blobstore.File {
	files := make([]blobstore.File, 0, n)
	for i := range n {
		h.seq++
		files = append(files, blobstore.File{
			Name: fmt.Sprintf("image-%d.jpg", i+1),
			Data: fmt.Appendf(nil, "image %d", h.seq),
		})
	}
	return files
}

// outcomeOf maps an engine error to a step result: ResultOK or the
// validation code. Any other error is returned as a failure.
func outcomeOf(err error) (string, error) {
	if err == nil {
		return ResultOK, nil
	}
	var ve *engine.ValidationError
	if errors.As(err, &ve) {
		return string(ve.Code), nil
	}
	if errors.Is(err, engine.ErrOrderNotFound) {
		return "NOT_FOUND", nil
	}
	return "", err
}

func expect(result *Result, where, want, got string) {
	if want == "" {
		want = ResultOK
	}
	if got != want {
		result.AddError("%s: expected %s, got %s", where, want, got)
	}
}
