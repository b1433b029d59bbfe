package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/blogsite/internal/auth"
	"github.com/sakif/blogsite/internal/model"
	"github.com/sakif/blogsite/internal/repository/sqlite"
)

// testEnv wires every service against a private in-memory database.
type testEnv struct {
	db         *sqlite.DB
	users      *UserService
	categories *CategoryService
	posts      *PostService
	auth       *AuthService
	tokens     *auth.TokenService
	revoker    *auth.MemoryRevoker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens, err := auth.NewTokenService("test-secret-at-least-16", time.Hour)
	require.NoError(t, err)
	revoker := auth.NewMemoryRevoker()

	users := NewUserService(db, db, auth.NewPasswordService(bcrypt.MinCost), logger)
	categories := NewCategoryService(db, db, logger)
	posts := NewPostService(db, db, categories, logger)

	_, err = categories.EnsureDefault(context.Background())
	require.NoError(t, err)

	return &testEnv{
		db:         db,
		users:      users,
		categories: categories,
		posts:      posts,
		auth:       NewAuthService(users, tokens, revoker, logger),
		tokens:     tokens,
		revoker:    revoker,
	}
}

func (e *testEnv) signUp(t *testing.T, email string) (*model.User, Caller) {
	t.Helper()
	res, err := e.auth.SignUp(context.Background(), NewUser{
		Email:     email,
		Password:  "pw12345",
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)
	return res.User, CallerFromSession(res.Session)
}

func (e *testEnv) createPost(t *testing.T, caller Caller, title, category string) *model.Post {
	t.Helper()
	post, err := e.posts.Create(context.Background(), caller, PostInput{
		Title:    title,
		Content:  "body of " + title,
		Category: category,
	})
	require.NoError(t, err)
	return post
}

func ptr[T any](v T) *T { return &v }
