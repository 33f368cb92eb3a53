package history

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storypage/internal/order"
	"github.com/roach88/storypage/internal/tier"
)

var t0 = time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC)

func fullLifecycle() *order.Record {
	r := &order.Record{
		ID:        "AbC123xyz789QwE",
		Tier:      tier.Premium,
		Price:     399,
		Status:    order.StatusPending,
		CreatedAt: t0,
	}
	r.Approve(t0.Add(time.Hour))

	r.Extension = order.NewExtensionRequest(
		time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), 365, 1598, true, "slip",
	).Reject(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	paid := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	r.TextEditPayment = order.NewPaidEdit(paid, 49, "slip").
		Approve(paid.Add(time.Hour)).
		Apply(paid.Add(2 * time.Hour))
	r.ImageEditPayment = order.NewPaidEdit(paid, 79, "slip")
	return r
}

func assertGolden(t *testing.T, name string, events []Event) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, events))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}

func TestProject_PendingOrder(t *testing.T) {
	r := &order.Record{ID: "x", Tier: tier.Trial, Price: 49, Status: order.StatusPending, CreatedAt: t0}

	events := Project(r)
	require.Len(t, events, 1)
	assert.Equal(t, KindOrder, events[0].Kind)
	assert.False(t, events[0].Resolved())

	assertGolden(t, "pending_order", events)
}

func TestProject_FullLifecycle(t *testing.T) {
	events := Project(fullLifecycle())
	require.Len(t, events, 4)

	assert.Equal(t, []Kind{KindOrder, KindTextEditPayment, KindImageEditPayment, KindExtension},
		[]Kind{events[0].Kind, events[1].Kind, events[2].Kind, events[3].Kind})
	assert.Equal(t, order.Rejected, events[3].Outcome)

	assertGolden(t, "full_lifecycle", events)
}

func TestProject_NoRequestNoEvent(t *testing.T) {
	r := &order.Record{ID: "x"}
	assert.Empty(t, Project(r))

	r.CreatedAt = t0
	r.Extension = order.ExtensionRequest{Days: 7}
	assert.Len(t, Project(r), 1, "extension fields without a request instant project nothing")
}

func TestProject_IsDeterministic(t *testing.T) {
	r := fullLifecycle()
	first := Project(r)
	assert.Equal(t, first, Project(r))

	// Fields unrelated to request instants do not change the event count.
	r.Content.Message = "edited"
	r.TextEditsUsed = 3
	r.CustomDomain = "anna.love"
	assert.Len(t, Project(r), len(first))
}

func TestProject_DoesNotMutateRecord(t *testing.T) {
	r := fullLifecycle()
	before := r.ToFields()
	Project(r)
	assert.Equal(t, before, r.ToFields())
}

func TestProject_ResolvedOrderRejected(t *testing.T) {
	r := &order.Record{ID: "x", Tier: tier.Standard, Price: 199, Status: order.StatusPending, CreatedAt: t0}
	r.Reject(t0.Add(time.Minute))

	events := Project(r)
	require.Len(t, events, 1)
	assert.Equal(t, "rejected", events[0].Label)
	assert.Equal(t, t0.Add(time.Minute), events[0].ResolvedAt)
}
