package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/blacklist-api/internal/domain"
	"github.com/ignite/blacklist-api/internal/service/blacklist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entryColumns = []string{"id", "email", "app_uuid", "blocked_reason", "request_ip", "request_time", "created_at"}

func setupMockDB(t *testing.T) (*BlacklistRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBlacklistRepo(db), mock
}

func TestBlacklistRepo_Insert(t *testing.T) {
	repo, mock := setupMockDB(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rt := created.Add(-time.Minute)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO blacklist_entries")).
		WithArgs("id-1", "test@example.com", "12345", "spam", "10.0.0.1", rt, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), &domain.BlacklistEntry{
		ID:            "id-1",
		Email:         "test@example.com",
		AppUUID:       "12345",
		BlockedReason: "spam",
		RequestIP:     "10.0.0.1",
		RequestTime:   &rt,
		CreatedAt:     created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlacklistRepo_Insert_NullOptionalFields(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO blacklist_entries")).
		WithArgs(sqlmock.AnyArg(), "test@example.com", "12345", "spam", nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), &domain.BlacklistEntry{
		ID:            "id-2",
		Email:         "test@example.com",
		AppUUID:       "12345",
		BlockedReason: "spam",
		CreatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlacklistRepo_Insert_WrapsDriverError(t *testing.T) {
	repo, mock := setupMockDB(t)
	driverErr := errors.New("pq: connection refused")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO blacklist_entries")).WillReturnError(driverErr)

	err := repo.Insert(context.Background(), &domain.BlacklistEntry{ID: "id", Email: "a@b.c", AppUUID: "x", BlockedReason: "y"})
	require.Error(t, err)
	assert.ErrorIs(t, err, driverErr)
}

func TestBlacklistRepo_FindByEmail_Found(t *testing.T) {
	repo, mock := setupMockDB(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rt := time.Date(2024, 5, 1, 11, 59, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM blacklist_entries")).
		WithArgs("test@example.com").
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow("id-1", "test@example.com", "12345", "spam", "192.168.1.1", rt, created))

	e, err := repo.FindByEmail(context.Background(), "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", e.ID)
	assert.Equal(t, "test@example.com", e.Email)
	assert.Equal(t, "12345", e.AppUUID)
	assert.Equal(t, "spam", e.BlockedReason)
	assert.Equal(t, "192.168.1.1", e.RequestIP)
	require.NotNil(t, e.RequestTime)
	assert.True(t, rt.Equal(*e.RequestTime))
	assert.True(t, created.Equal(e.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlacklistRepo_FindByEmail_NullOptionalFields(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM blacklist_entries")).
		WithArgs("test@example.com").
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow("id-1", "test@example.com", "12345", "spam", nil, nil, time.Now()))

	e, err := repo.FindByEmail(context.Background(), "test@example.com")
	require.NoError(t, err)
	assert.Empty(t, e.RequestIP)
	assert.Nil(t, e.RequestTime)
}

func TestBlacklistRepo_FindByEmail_NotFound(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM blacklist_entries")).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(entryColumns))

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, blacklist.ErrNotFound)
}

func TestBlacklistRepo_FindByEmail_OrdersEarliestFirst(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery(`ORDER BY created_at ASC, id ASC\s+LIMIT 1`).
		WithArgs("test@example.com").
		WillReturnRows(sqlmock.NewRows(entryColumns))

	_, _ = repo.FindByEmail(context.Background(), "test@example.com")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlacklistRepo_Ping(t *testing.T) {
	repo, mock := setupMockDB(t)
	mock.ExpectPing().WillReturnError(errors.New("down"))

	assert.Error(t, repo.Ping(context.Background()))
}
