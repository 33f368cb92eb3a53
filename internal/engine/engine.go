package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/storypage/internal/blobstore"
	"github.com/roach88/storypage/internal/docstore"
	"github.com/roach88/storypage/internal/idgen"
	"github.com/roach88/storypage/internal/order"
	"github.com/roach88/storypage/internal/tier"
)

// IDGenerator allocates public order identifiers.
// Implemented by idgen.Generator (production) and testutil.FixedIDs (tests).
type IDGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// Recorder observes operation outcomes. Implemented by metrics.Collector.
type Recorder interface {
	ObserveOperation(op, outcome string, elapsed time.Duration)
}

// Operation outcomes passed to Recorder.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}

// Engine runs lifecycle operations against one document store.
//
// Engine holds no per-order state; it is safe for concurrent use as far as
// its collaborators are. Concurrent writes to the same order are not
// coordinated.
type Engine struct {
	docs     docstore.Documents
	blobs    blobstore.Storage
	tiers    *tier.Table
	clock    Clock
	ids      IDGenerator
	log      *slog.Logger
	recorder Recorder
	validate *validator.Validate
}

// EngineOption allows configuration of engine collaborators.
type EngineOption func(*Engine)

// WithClock sets the clock used for every instant the engine writes.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithIDGenerator replaces the identifier generator.
// Default: idgen.New over the same document store.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) { e.ids = g }
}

// WithRecorder sets the operation metrics recorder.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// New creates an Engine over the given store, blob storage, and tier table.
func New(docs docstore.Documents, blobs blobstore.Storage, tiers *tier.Table, opts ...EngineOption) *Engine {
	e := &Engine{
		docs:     docs,
		blobs:    blobs,
		tiers:    tiers,
		clock:    SystemClock{},
		log:      slog.Default(),
		recorder: nopRecorder{},
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ids == nil {
		e.ids = idgen.New(docs, order.Collection, idgen.WithClock(e.clock.Now))
	}
	return e
}

// Tiers returns the injected tier table.
func (e *Engine) Tiers() *tier.Table { return e.tiers }

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

// change applies fn to a copy of the stored record and merges the changed
// fields back. fn validates first, then uploads, then mutates; returning an
// error leaves the document untouched.
func (e *Engine) change(ctx context.Context, op, id string, fn func(r *order.Record, t tier.Tier, now time.Time) error) (err error) {
	start := time.Now()
	defer func() { e.finish(op, id, start, err) }()

	current, err := e.load(ctx, id)
	if err != nil {
		return err
	}
	t, ok := e.tiers.Get(current.Tier)
	if !ok {
		return invalid(ErrCodeUnknownTier, order.FieldTier, "tier %q is not configured", current.Tier)
	}

	next := current.Clone()
	if err := fn(next, t, e.now()); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	diff := order.Diff(current.ToFields(), next.ToFields())
	diff[order.FieldUpdatedAt] = docstore.ServerTimestamp
	if err := e.docs.Set(ctx, order.Collection, id, diff, docstore.Merge); err != nil {
		return fmt.Errorf("%s: write order %s: %w", op, id, err)
	}
	return nil
}

// finish logs and records one operation outcome. Validation errors get the
// order id attached.
func (e *Engine) finish(op, id string, start time.Time, err error) {
	elapsed := time.Since(start)
	var ve *ValidationError
	switch {
	case err == nil:
		e.recorder.ObserveOperation(op, OutcomeOK, elapsed)
		e.log.Info("order updated", "op", op, "order_id", id)
	case errors.As(err, &ve):
		if ve.OrderID == "" {
			ve.OrderID = id
		}
		e.recorder.ObserveOperation(op, OutcomeRejected, elapsed)
		e.log.Warn("order operation rejected",
			"op", op,
			"order_id", id,
			"code", ve.Code,
			"field", ve.Field,
			"reason", ve.Message,
		)
	case errors.Is(err, ErrOrderNotFound):
		e.recorder.ObserveOperation(op, OutcomeRejected, elapsed)
		e.log.Warn("order not found", "op", op, "order_id", id)
	default:
		e.recorder.ObserveOperation(op, OutcomeError, elapsed)
		e.log.Error("order operation failed", "op", op, "order_id", id, "error", err)
	}
}

// load reads and decodes one order by id.
func (e *Engine) load(ctx context.Context, id string) (*order.Record, error) {
	if id == "" {
		return nil, invalid(ErrCodeMissingField, order.FieldID, "order id is required")
	}
	fields, err := e.docs.Get(ctx, order.Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read order %s: %w", id, err)
	}
	return order.FromFields(id, fields)
}

// upload stores files for an order and wraps failures with the purpose.
func (e *Engine) upload(ctx context.Context, p blobstore.Purpose, id string, files ...blobstore.File) ([]string, error) {
	urls, err := blobstore.Upload(ctx, e.blobs, p, id, files...)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", p, err)
	}
	return urls, nil
}

func requireApproved(r *order.Record) error {
	if r.Status != order.StatusApproved {
		return invalid(ErrCodeNotApproved, order.FieldStatus, "order is %s, not approved", r.Status)
	}
	return nil
}

func requireFile(f blobstore.File, field string) error {
	if len(f.Data) == 0 {
		return invalid(ErrCodeMissingField, field, "%s upload is required", field)
	}
	return nil
}
