package testutil

import (
	"database/sql"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// SetupMockDB opens a sqlmock-backed connection with regexp query matching.
// The returned func closes it and is safe to call more than once.
func SetupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "open sqlmock")

	var once sync.Once
	return db, mock, func() {
		once.Do(func() { _ = db.Close() })
	}
}
