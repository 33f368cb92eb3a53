package idgen

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storypage/internal/docstore"
)

// seqSource replays the same draw for every call to a fixed index.
type seqSource struct{ v int }

func (s seqSource) IntN(n int) int { return s.v % n }

// countingDocs counts Get calls and can fail them.
type countingDocs struct {
	docstore.Documents
	gets int
	err  error
}

func (c *countingDocs) Get(ctx context.Context, collection, id string) (docstore.Fields, error) {
	c.gets++
	if c.err != nil {
		return nil, c.err
	}
	return c.Documents.Get(ctx, collection, id)
}

func openStore(t *testing.T) *docstore.SQLite {
	t.Helper()
	st, err := docstore.Open(filepath.Join(t.TempDir(), "ids.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestDraw(t *testing.T) {
	src := rand.New(rand.NewPCG(1, 2))
	for range 100 {
		id := Draw(src)
		assert.Len(t, id, Length)
		assert.True(t, valid(id), id)
	}
	assert.Equal(t, "AAAAAAAAAAAAAAA", Draw(seqSource{0}))
}

func TestGenerate_FreeOnFirstDraw(t *testing.T) {
	docs := &countingDocs{Documents: openStore(t)}
	g := New(docs, "orders", WithSource(rand.New(rand.NewPCG(7, 7))))

	id, err := g.Generate(t.Context())
	require.NoError(t, err)
	assert.Len(t, id, Length)
	assert.Equal(t, 1, docs.gets)
}

func TestGenerate_SuffixAfterExhaustion(t *testing.T) {
	st := openStore(t)
	taken := Draw(seqSource{1})
	require.NoError(t, st.Set(t.Context(), "orders", taken, docstore.Fields{"status": "pending"}, docstore.Replace))

	now := time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC)
	docs := &countingDocs{Documents: st}
	g := New(docs, "orders", WithSource(seqSource{1}), WithClock(func() time.Time { return now }))

	id, err := g.Generate(t.Context())
	require.NoError(t, err)
	assert.Equal(t, MaxAttempts, docs.gets)
	assert.Equal(t, taken+strconv.FormatInt(now.UnixMilli(), 36), id)
	assert.True(t, valid(id))
}

func TestGenerate_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("store unreachable")
	docs := &countingDocs{Documents: openStore(t), err: boom}
	g := New(docs, "orders")

	_, err := g.Generate(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, docs.gets, "no retry on I/O failure")
}

func TestValidShape(t *testing.T) {
	assert.False(t, valid("short"))
	assert.False(t, valid("AAAAAAAAAAAAAA-"))
	assert.True(t, valid("AAAAAAAAAAAAAAAlq3k9"))
}
