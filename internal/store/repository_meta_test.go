package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqledger/go-req-ledger/internal/logger"
)

func TestMetaRepository_LastSyncTimestamp_FirstRunIsZero(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMetaRepository(db, logger.Nop())

	mock.ExpectQuery("SELECT value").
		WithArgs("lastSyncTimestamp").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	ts, err := repo.LastSyncTimestamp(context.Background())
	require.NoError(t, err)
	assert.Zero(t, ts)
}

func TestMetaRepository_LastSyncTimestamp_RoundTrip(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMetaRepository(db, logger.Nop())

	mock.ExpectExec("INSERT INTO sync_meta").
		WithArgs("lastSyncTimestamp", "1700000000000").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT value").
		WithArgs("lastSyncTimestamp").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("1700000000000"))

	require.NoError(t, repo.SetLastSyncTimestamp(context.Background(), 1700000000000))

	ts, err := repo.LastSyncTimestamp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetaRepository_DeviceID_GeneratedOnce(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMetaRepository(db, logger.Nop())

	// First call: nothing persisted yet, a fresh id is generated and stored.
	mock.ExpectQuery("SELECT value").
		WithArgs("deviceId").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectExec("INSERT INTO sync_meta").
		WithArgs("deviceId", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.DeviceID(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Second call: the persisted id is returned as-is, no new insert.
	mock.ExpectQuery("SELECT value").
		WithArgs("deviceId").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(id))

	again, err := repo.DeviceID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMetaRepository_SyncDueAt(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMetaRepository(db, logger.Nop())

	mock.ExpectExec("INSERT INTO sync_meta").
		WithArgs("syncDueAt", "4200").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT value").
		WithArgs("syncDueAt").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("4200"))

	require.NoError(t, repo.SetSyncDueAt(context.Background(), 4200))

	due, err := repo.SyncDueAt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4200), due)
}
