package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/sakif/blogsite/internal/model"
)

// newTestDB returns a fresh in-memory database, closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "$2a$04$notarealhashbutlongenoughtostore",
		IsActive:     true,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestCategory(t *testing.T, db *DB, name string) *model.Category {
	t.Helper()
	cat, _, err := db.GetOrCreateCategory(context.Background(), name)
	if err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return cat
}

func createTestPost(t *testing.T, db *DB, title string, author *model.User, cat *model.Category) *model.Post {
	t.Helper()
	post := &model.Post{
		Title:      title,
		Content:    fmt.Sprintf("body of %s", title),
		CategoryID: cat.ID,
		AuthorID:   author.ID,
	}
	if err := db.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}
	return post
}
