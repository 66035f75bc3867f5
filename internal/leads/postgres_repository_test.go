package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadradar/internal/forms"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPostgresRepository(mock), mock
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func sampleNewLead() *NewLead {
	return &NewLead{
		FormID:  3,
		EventID: int64Ptr(5),
		Values: []*Value{
			{FieldID: int64Ptr(10), FieldKey: "email", FieldLabel: "Email", Value: "a@b.com"},
			{FieldID: int64Ptr(11), FieldKey: "notes", FieldLabel: "Notes", Value: ""},
		},
	}
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM forms WHERE id = \\$1 FOR SHARE").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("ACTIVE"))
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(int64(3), int64Ptr(5), (*int64)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "name"}).AddRow(int64(77), now, strPtr("Swiss Expo")))
	mock.ExpectQuery("INSERT INTO lead_values").
		WithArgs(int64(77), int64Ptr(10), "email", "Email", "a@b.com").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO lead_values").
		WithArgs(int64(77), int64Ptr(11), "notes", "Notes", "").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectCommit()

	lead, err := repo.Create(context.Background(), sampleNewLead())
	require.NoError(t, err)
	assert.Equal(t, int64(77), lead.ID)
	assert.Equal(t, now, lead.CreatedAt)
	require.NotNil(t, lead.Event)
	assert.Equal(t, EventRef{ID: 5, Name: "Swiss Expo"}, *lead.Event)
	require.Len(t, lead.Values, 2)
	assert.Equal(t, int64(2), lead.Values[1].ID)
	assert.Equal(t, int64(77), lead.Values[1].LeadID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateFormNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM forms").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), sampleNewLead())
	assert.True(t, errors.Is(err, forms.ErrFormNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateArchivedForm(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM forms").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("ARCHIVED"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), sampleNewLead())
	assert.ErrorIs(t, err, ErrFormArchived)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateUnknownEvent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM forms").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("ACTIVE"))
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(int64(3), int64Ptr(5), (*int64)(nil)).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "leads_event_id_fkey"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), sampleNewLead())
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateFieldDeletedMidway(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM forms").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("DRAFT"))
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(int64(3), int64Ptr(5), (*int64)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "name"}).AddRow(int64(1), now, nil))
	mock.ExpectQuery("INSERT INTO lead_values").
		WithArgs(int64(1), int64Ptr(10), "email", "Email", "a@b.com").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "lead_values_field_id_fkey"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), sampleNewLead())
	assert.ErrorIs(t, err, ErrUnknownFieldKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreateInsertFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM forms").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("ACTIVE"))
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(int64(3), int64Ptr(5), (*int64)(nil)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), sampleNewLead())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
