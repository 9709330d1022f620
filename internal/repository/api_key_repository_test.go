package repository

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return db, mock
}

func TestGormAPIKeyRepository_MarkRevokedIsSingleColumnUpdate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAPIKeyRepository(db)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `api_keys` SET `revoked`=? WHERE id = ?")).
		WithArgs(true, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRevoked(id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormAPIKeyRepository_UpdateLastUsedIsSingleColumnUpdate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAPIKeyRepository(db)
	id := uuid.New()
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `api_keys` SET `last_used_at`=? WHERE id = ?")).
		WithArgs(at, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateLastUsed(id, at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormAPIKeyRepository_ListActiveExcludesRevoked(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAPIKeyRepository(db)

	id := uuid.New()
	userID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "key_hash", "revoked"}).
		AddRow(id.String(), userID.String(), "laptop", "hash", false)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `api_keys` WHERE revoked = ?")).
		WithArgs(false).
		WillReturnRows(rows)

	keys, err := repo.ListActive()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Equal(t, id, keys[0].ID)
	require.False(t, keys[0].Revoked)
	require.NoError(t, mock.ExpectationsWereMet())
}
