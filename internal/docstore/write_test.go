package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func TestSet_ReplaceAndGet(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	err := s.Set(ctx, "orders", "abc", Fields{
		"status":  "pending",
		"price":   199,
		"images":  []string{"a.png", "b.png"},
		"created": t0,
		"locked":  true,
	}, Replace)
	require.NoError(t, err)

	got, err := s.Get(ctx, "orders", "abc")
	require.NoError(t, err)

	assert.Equal(t, "pending", got["status"])
	assert.Equal(t, int64(199), got["price"])
	assert.Equal(t, []any{"a.png", "b.png"}, got["images"])
	assert.Equal(t, true, got["locked"])

	created, ok := ParseTime(got["created"])
	require.True(t, ok)
	assert.True(t, created.Equal(t0))
}

func TestSet_ReplaceDropsOldFields(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Set(ctx, "orders", "abc", Fields{"a": "1", "b": "2"}, Replace))
	require.NoError(t, s.Set(ctx, "orders", "abc", Fields{"a": "3"}, Replace))

	got, err := s.Get(ctx, "orders", "abc")
	require.NoError(t, err)
	assert.Equal(t, Fields{"a": "3"}, got)
}

func TestSet_MergeOverlaysAndDeletes(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Set(ctx, "orders", "abc", Fields{
		"status":      "pending",
		"approved_at": t0,
		"message":     "hi",
	}, Replace))

	require.NoError(t, s.Set(ctx, "orders", "abc", Fields{
		"status":      "rejected",
		"approved_at": Delete,
	}, Merge))

	got, err := s.Get(ctx, "orders", "abc")
	require.NoError(t, err)
	assert.Equal(t, "rejected", got["status"])
	assert.Equal(t, "hi", got["message"])
	assert.NotContains(t, got, "approved_at")
}

func TestSet_MergeCreatesMissingDocument(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Set(ctx, "orders", "new", Fields{"a": "1", "gone": Delete}, Merge))

	got, err := s.Get(ctx, "orders", "new")
	require.NoError(t, err)
	assert.Equal(t, Fields{"a": "1"}, got)
}

func TestSet_ServerTimestamp(t *testing.T) {
	s := createTestStore(t, fixedNow(t0))
	ctx := t.Context()

	require.NoError(t, s.Set(ctx, "orders", "abc", Fields{"updated_at": ServerTimestamp}, Replace))

	got, err := s.Get(ctx, "orders", "abc")
	require.NoError(t, err)
	ts, ok := ParseTime(got["updated_at"])
	require.True(t, ok)
	assert.True(t, ts.Equal(t0))
}

func TestSet_RejectsFloats(t *testing.T) {
	s := createTestStore(t)

	err := s.Set(t.Context(), "orders", "abc", Fields{"price": 1.5}, Replace)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")

	_, err = s.Get(t.Context(), "orders", "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSet_RequiresKey(t *testing.T) {
	s := createTestStore(t)
	assert.Error(t, s.Set(t.Context(), "orders", "", Fields{}, Replace))
}
