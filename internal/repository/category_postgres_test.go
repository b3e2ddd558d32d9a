package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wholesail/wholesail/internal/domain"
	"github.com/wholesail/wholesail/internal/repository/testutil"
)

func TestCategoryRepository_List(t *testing.T) {
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()

	repo := NewCategoryRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, name, slug, description, created_at FROM categories ORDER BY name ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "description", "created_at"}).
			AddRow("c1", "Coffee", "coffee", "", now).
			AddRow("c2", "Tea", "tea", "Loose leaf", now))

	categories, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "tea", categories[1].Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Create_DuplicateSlug(t *testing.T) {
	db, mock, cleanup := testutil.SetupMockDB(t)
	defer cleanup()

	repo := NewCategoryRepository(db)

	mock.ExpectExec(`INSERT INTO categories`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &domain.Category{ID: "c1", Name: "Coffee", Slug: "coffee"})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Delete(t *testing.T) {
	t.Run("detaches products then deletes", func(t *testing.T) {
		db, mock, cleanup := testutil.SetupMockDB(t)
		defer cleanup()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE products SET category_id = NULL`).
			WithArgs(sqlmock.AnyArg(), "c1").
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).
			WithArgs("c1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewCategoryRepository(db).Delete(context.Background(), "c1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when missing", func(t *testing.T) {
		db, mock, cleanup := testutil.SetupMockDB(t)
		defer cleanup()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE products SET category_id = NULL`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM categories`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := NewCategoryRepository(db).Delete(context.Background(), "missing")
		assert.True(t, domain.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
