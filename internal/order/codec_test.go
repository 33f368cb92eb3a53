package order

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storypage/internal/docstore"
)

func TestCodec_RoundTripThroughStore(t *testing.T) {
	st, err := docstore.Open(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	r := sampleRecord()
	r.Approve(t0.Add(time.Hour))
	r.ExpiresAt = t0.Add(91 * 24 * time.Hour)
	r.Extension = NewExtensionRequest(t0.Add(48*time.Hour), 365, 1598, true, "http://blobs/ext.png").
		Reject(t0.Add(50 * time.Hour))
	r.TextEditPayment = NewPaidEdit(t0.Add(3*time.Hour), 49, "http://blobs/edit.png").
		Approve(t0.Add(4 * time.Hour)).
		Apply(t0.Add(5 * time.Hour))
	r.ImageEditPayment = NewPaidEdit(t0.Add(6*time.Hour), 79, "http://blobs/img.png")

	ctx := t.Context()
	require.NoError(t, st.Set(ctx, Collection, r.ID, r.ToFields(), docstore.Replace))

	fields, err := st.Get(ctx, Collection, r.ID)
	require.NoError(t, err)
	got, err := FromFields(r.ID, fields)
	require.NoError(t, err)

	assert.Equal(t, r.Content, got.Content)
	assert.Equal(t, r.Images, got.Images)
	assert.Equal(t, StatusApproved, got.Status)
	assert.True(t, got.ExpiresAt.Equal(r.ExpiresAt))

	assert.Equal(t, Rejected, got.Extension.Phase())
	assert.Equal(t, 365, got.Extension.Days)
	assert.True(t, got.Extension.SpecialLink)
	assert.Equal(t, 1598, got.Extension.Price)

	assert.Equal(t, Approved, got.TextEditPayment.Phase())
	applied, ok := got.TextEditPayment.AppliedAt()
	require.True(t, ok)
	assert.True(t, applied.Equal(t0.Add(5*time.Hour)))

	assert.True(t, got.ImageEditPayment.IsPending())
	assert.Equal(t, 79, got.ImageEditPayment.Price)

	// Re-encoding the decoded record yields the same document.
	assert.Empty(t, Diff(fields, got.ToFields()))
}

func TestToFields_OmitsUnsetSubStates(t *testing.T) {
	f := sampleRecord().ToFields()

	assert.NotContains(t, f, FieldExtensionRequestedAt)
	assert.NotContains(t, f, FieldApprovedAt)
	assert.NotContains(t, f, "text_edit_payment_requested_at")
	assert.NotContains(t, f, FieldSpecialLinkGranted)
	assert.Equal(t, "pending", f[FieldStatus])
}

func TestFromFields_DerivesPhaseFromInstants(t *testing.T) {
	f := docstore.Fields{
		FieldStatus:                     "approved",
		FieldApprovedAt:                 t0,
		"image_edit_payment_requested_at": t0.Format(docstore.TimeFormat),
		"image_edit_payment_rejected_at":  t0.Add(time.Hour).Format(docstore.TimeFormat),
		FieldExtensionApprovedAt:        t0.Format(docstore.TimeFormat),
	}

	r, err := FromFields("id1", f)
	require.NoError(t, err)
	assert.Equal(t, Rejected, r.ImageEditPayment.Phase())
	assert.Equal(t, Unrequested, r.Extension.Phase(), "outcome without a request is ignored")
}

func TestFromFields_TypeMismatch(t *testing.T) {
	_, err := FromFields("id1", docstore.Fields{FieldTextEditsUsed: "one"})
	assert.Error(t, err)

	_, err = FromFields("id1", docstore.Fields{FieldCreatedAt: "yesterday"})
	assert.Error(t, err)
}

func TestFromFields_DefaultsStatusToPending(t *testing.T) {
	r, err := FromFields("id1", docstore.Fields{})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, r.Status)
}

func TestDiff(t *testing.T) {
	before := docstore.Fields{"a": "1", "b": int64(2), "c": []any{"x"}}
	after := docstore.Fields{"a": "1", "b": 3, "c": []string{"x"}, "d": true}

	got := Diff(before, after)
	assert.Equal(t, docstore.Fields{"b": 3, "d": true}, got)

	got = Diff(after, docstore.Fields{"a": "1"})
	assert.Equal(t, docstore.Delete, got["b"])
	assert.Equal(t, docstore.Delete, got["d"])
	assert.NotContains(t, got, "a")
}
