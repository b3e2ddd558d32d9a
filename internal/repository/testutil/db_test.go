package testutil

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupMockDB(t *testing.T) {
	t.Run("creates mock DB successfully", func(t *testing.T) {
		db, mock, cleanup := SetupMockDB(t)

		require.NotNil(t, db)
		require.NotNil(t, mock)
		assert.IsType(t, (*sql.DB)(nil), db)

		cleanup()
	})

	t.Run("cleanup closes database", func(t *testing.T) {
		db, _, cleanup := SetupMockDB(t)

		assert.NoError(t, db.Ping())
		cleanup()
		assert.Error(t, db.Ping())
	})

	t.Run("mock matches regexp queries", func(t *testing.T) {
		db, mock, cleanup := SetupMockDB(t)
		defer cleanup()

		mock.ExpectQuery("SELECT .* FROM products").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))

		var id string
		require.NoError(t, db.QueryRow("SELECT id FROM products LIMIT 1").Scan(&id))
		assert.Equal(t, "p1", id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
