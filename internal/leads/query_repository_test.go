package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leadCols = []string{"id", "created_at", "form_id", "form_name", "event_id", "event_name", "user_id", "user_name", "user_email"}

var valueCols = []string{"id", "lead_id", "field_id", "key", "label", "value"}

func newQueryRepo(t *testing.T) (*SQLQueryRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLQueryRepository(db), mock
}

func TestSQLQueryRepository_List(t *testing.T) {
	repo, mock := newQueryRepo(t)
	newer := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)
	older := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM leads l (.+) ORDER BY l.created_at DESC, l.id DESC\\s+LIMIT \\$2 OFFSET \\$3").
		WithArgs(int64(3), 100, 0).
		WillReturnRows(sqlmock.NewRows(leadCols).
			AddRow(int64(9), newer, int64(3), "Expo", int64(5), "Swiss Expo", nil, nil, nil).
			AddRow(int64(8), older, int64(3), "Expo", nil, nil, int64(2), "Sam", "sam@example.com"))
	mock.ExpectQuery("FROM lead_values v").
		WithArgs(pq.Array([]int64{9, 8})).
		WillReturnRows(sqlmock.NewRows(valueCols).
			AddRow(int64(1), int64(8), int64(10), "email", "Email", "old@example.com").
			AddRow(int64(2), int64(8), nil, "phone", "Phone", "123").
			AddRow(int64(3), int64(9), int64(10), "email", "Email", "new@example.com"))

	items, err := repo.List(context.Background(), ListFilter{FormID: int64Ptr(3)})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, int64(9), items[0].ID)
	require.NotNil(t, items[0].Event)
	assert.Equal(t, "Swiss Expo", items[0].Event.Name)
	assert.Nil(t, items[0].CapturedBy)
	require.Len(t, items[0].Values, 1)
	assert.Equal(t, "new@example.com", items[0].Values[0].Value)

	assert.Nil(t, items[1].Event)
	require.NotNil(t, items[1].CapturedBy)
	assert.Equal(t, "sam@example.com", items[1].CapturedBy.Email)
	require.Len(t, items[1].Values, 2)
	assert.Nil(t, items[1].Values[1].FieldID)
	assert.Equal(t, "phone", items[1].Values[1].FieldKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLQueryRepository_ListEmptySkipsValues(t *testing.T) {
	repo, mock := newQueryRepo(t)

	mock.ExpectQuery("FROM leads l").
		WithArgs(nil, 500, 20).
		WillReturnRows(sqlmock.NewRows(leadCols))

	items, err := repo.List(context.Background(), ListFilter{Limit: 9999, Offset: 20})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLQueryRepository_Export(t *testing.T) {
	repo, mock := newQueryRepo(t)
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("ORDER BY l.created_at ASC, l.id ASC").
		WithArgs(nil).
		WillReturnRows(sqlmock.NewRows(leadCols).
			AddRow(int64(1), at, int64(3), "Expo", nil, nil, nil, nil, nil))
	mock.ExpectQuery("FROM lead_values v").
		WithArgs(pq.Array([]int64{1})).
		WillReturnRows(sqlmock.NewRows(valueCols).
			AddRow(int64(1), int64(1), int64(10), "email", "Email", "a@b.com"))

	items, err := repo.Export(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Expo", items[0].Form.Name)
	require.Len(t, items[0].Values, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLQueryRepository_QueryError(t *testing.T) {
	repo, mock := newQueryRepo(t)

	mock.ExpectQuery("FROM leads l").WillReturnError(errors.New("boom"))

	_, err := repo.Export(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
