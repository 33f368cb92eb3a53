package docstore

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Get(t.Context(), "orders", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuery_MatchesTopLevelField(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Set(ctx, "orders", "b", Fields{"custom_domain": "anna.love"}, Replace))
	require.NoError(t, s.Set(ctx, "orders", "a", Fields{"custom_domain": "anna.love"}, Replace))
	require.NoError(t, s.Set(ctx, "orders", "c", Fields{"custom_domain": "other"}, Replace))
	require.NoError(t, s.Set(ctx, "pages", "d", Fields{"custom_domain": "anna.love"}, Replace))

	docs, err := s.Query(ctx, "orders", "custom_domain", "anna.love")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
}

func TestQuery_IntAndBool(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.Set(ctx, "orders", "a", Fields{"n": 3, "granted": true}, Replace))
	require.NoError(t, s.Set(ctx, "orders", "b", Fields{"n": 4, "granted": false}, Replace))

	docs, err := s.Query(ctx, "orders", "n", 3)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)

	docs, err = s.Query(ctx, "orders", "granted", false)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID)
}

func TestQuery_EmptyResultIsNotNil(t *testing.T) {
	s := createTestStore(t)

	docs, err := s.Query(t.Context(), "orders", "custom_domain", "nobody")
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestQuery_RejectsPathInjection(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Query(t.Context(), "orders", "a') OR 1=1 --", "x")
	assert.Error(t, err)
}

func TestGet_PropagatesIOError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	diskErr := errors.New("disk I/O error")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM documents`)).
		WithArgs("orders", "abc").
		WillReturnError(diskErr)

	s := newStore(db)
	_, err = s.Get(t.Context(), "orders", "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, diskErr)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSet_WriteFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	writeErr := errors.New("database is locked")
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT body FROM documents`)).
		WithArgs("orders", "abc").
		WillReturnRows(sqlmock.NewRows([]string{"body"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO documents`)).
		WillReturnError(writeErr)
	mock.ExpectRollback()

	s := newStore(db)
	err = s.Set(t.Context(), "orders", "abc", Fields{"status": "approved"}, Merge)
	require.Error(t, err)
	assert.ErrorIs(t, err, writeErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
