package sqlite

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/repository"
)

func TestGetOrCreateCategory_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, created, err := db.GetOrCreateCategory(ctx, "Tech")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)

	second, created, err := db.GetOrCreateCategory(ctx, "Tech")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	all, err := db.ListCategories(ctx, repository.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetOrCreateCategory_CaseSensitive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	lower, _, err := db.GetOrCreateCategory(ctx, "tech")
	require.NoError(t, err)
	upper, created, err := db.GetOrCreateCategory(ctx, "Tech")
	require.NoError(t, err)

	assert.True(t, created)
	assert.NotEqual(t, lower.ID, upper.ID)
}

// The lookup misses, the insert loses a race to a concurrent request, and the
// repository must return the winner's row instead of the constraint error.
func TestGetOrCreateCategory_InsertRaceFallsBackToLookup(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	db := newWithConn(conn)

	selectByName := regexp.QuoteMeta(`SELECT id, name, created_at, modified_at FROM categories WHERE name = ?`)
	now := time.Now().UTC()

	mock.ExpectQuery(selectByName).
		WithArgs("Tech").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "modified_at"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO categories`)).
		WithArgs("Tech", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: categories.name (2067)"))
	mock.ExpectQuery(selectByName).
		WithArgs("Tech").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "modified_at"}).
			AddRow(7, "Tech", now, now))

	cat, created, err := db.GetOrCreateCategory(context.Background(), "Tech")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(7), cat.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateCategory_RaceWinnerGoneIsConflict(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	db := newWithConn(conn)

	selectByName := regexp.QuoteMeta(`SELECT id, name, created_at, modified_at FROM categories WHERE name = ?`)
	empty := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "name", "created_at", "modified_at"})
	}

	mock.ExpectQuery(selectByName).WithArgs("Tech").WillReturnRows(empty())
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO categories`)).
		WithArgs("Tech", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: categories.name (2067)"))
	mock.ExpectQuery(selectByName).WithArgs("Tech").WillReturnRows(empty())

	_, _, err = db.GetOrCreateCategory(context.Background(), "Tech")
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateCategory_InsertFailurePropagates(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	db := newWithConn(conn)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "modified_at"}))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO categories`)).
		WillReturnError(errors.New("disk I/O error"))

	_, _, err = db.GetOrCreateCategory(context.Background(), "Tech")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCategoryByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetCategoryByID(context.Background(), 77)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestListCategories_NewestFirstWithLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C", "D"} {
		createTestCategory(t, db, name)
	}

	got, err := db.ListCategories(ctx, repository.ListOptions{Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"D", "C", "B"}, []string{got[0].Name, got[1].Name, got[2].Name})
}

func TestDeleteCategory_ProtectedWhileReferenced(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cat := createTestCategory(t, db, "Tech")
	author := createTestUser(t, db, "a@x.com")
	post := createTestPost(t, db, "Hello", author, cat)

	err := db.DeleteCategory(ctx, cat.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrProtected)

	// Nothing changed.
	_, err = db.GetCategoryByID(ctx, cat.ID)
	assert.NoError(t, err)
	_, err = db.GetPostByID(ctx, post.ID)
	assert.NoError(t, err)

	// Once the post is gone the category can go too.
	require.NoError(t, db.DeletePost(ctx, post.ID))
	require.NoError(t, db.DeleteCategory(ctx, cat.ID))
	_, err = db.GetCategoryByID(ctx, cat.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteCategory_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.DeleteCategory(context.Background(), 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUniqueColumn(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"constraint failed: UNIQUE constraint failed: users.email (2067)", "email"},
		{"UNIQUE constraint failed: users.username", "username"},
		{"something else", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, uniqueColumn(errors.New(tt.msg)), tt.msg)
	}
}
