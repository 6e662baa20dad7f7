package cmd

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/catalogsync/internal/config"
	"github.com/dbsmedya/catalogsync/internal/database"
	"github.com/dbsmedya/catalogsync/internal/lock"
	"github.com/dbsmedya/catalogsync/internal/logger"
)

func newLockTestEnv(t *testing.T) (*runEnv, *database.Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := &runEnv{cfg: config.DefaultConfig(), log: logger.NewNop(), runID: "test"}
	return env, &database.Manager{Target: db}, mock
}

func TestWithRunLock(t *testing.T) {
	getLock := regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")
	releaseLock := regexp.QuoteMeta("SELECT RELEASE_LOCK(?)")

	t.Run("runs under the lock", func(t *testing.T) {
		env, dbManager, mock := newLockTestEnv(t)
		mock.ExpectQuery(getLock).WithArgs("catalogsync:run:sync", lock.TimeoutShort).
			WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))
		mock.ExpectQuery(releaseLock).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(1))

		called := false
		err := env.withRunLock(context.Background(), dbManager, "sync", false, func(context.Context) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("held by another instance", func(t *testing.T) {
		env, dbManager, mock := newLockTestEnv(t)
		mock.ExpectQuery(getLock).WillReturnRows(sqlmock.NewRows([]string{"r"}).AddRow(0))

		called := false
		err := env.withRunLock(context.Background(), dbManager, "sync", false, func(context.Context) error {
			called = true
			return nil
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, lock.ErrLockTimeout)
		assert.Contains(t, err.Error(), "use --force to override")
		assert.False(t, called)
	})

	t.Run("skip runs without touching the database", func(t *testing.T) {
		env, dbManager, mock := newLockTestEnv(t)

		called := false
		err := env.withRunLock(context.Background(), dbManager, "codes-products-ean13", true, func(context.Context) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
