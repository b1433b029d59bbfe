package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/model"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Email:        "test@example.com",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PasswordHash: "hash",
		IsActive:     true,
	}

	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == 0 {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.DateJoined.IsZero() {
		t.Error("CreateUser() did not set user.DateJoined")
	}
	if user.DateModified.IsZero() {
		t.Error("CreateUser() did not set user.DateModified")
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "dup@example.com")

	duplicate := &model.User{
		Email:        "dup@example.com",
		FirstName:    "Second",
		LastName:     "User",
		PasswordHash: "hash",
	}
	err := db.CreateUser(context.Background(), duplicate)
	if err == nil {
		t.Fatal("CreateUser() should have returned an error for a duplicate email")
	}
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Field != "email" {
		t.Errorf("Field = %q, want %q", appErr.Field, "email")
	}
}

func TestUserCreate_BlankUsernamesDoNotCollide(t *testing.T) {
	db := newTestDB(t)

	// Username is optional; two users without one must both be accepted.
	createTestUser(t, db, "one@example.com")
	createTestUser(t, db, "two@example.com")
}

func TestUserCreate_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &model.User{Email: "a@example.com", Username: "ada", FirstName: "A", LastName: "B", PasswordHash: "h"}
	if err := db.CreateUser(ctx, first); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	second := &model.User{Email: "b@example.com", Username: "ada", FirstName: "A", LastName: "B", PasswordHash: "h"}
	err := db.CreateUser(ctx, second)

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Field != "username" {
		t.Fatalf("error = %v, want validation error on username", err)
	}
}

// =========================================================================
// READ TESTS
// =========================================================================

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "getbyid@example.com")

	found, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}

	if found.Email != "getbyid@example.com" {
		t.Errorf("Email = %q, want %q", found.Email, "getbyid@example.com")
	}
	if found.Username != "" {
		t.Errorf("Username = %q, want empty", found.Username)
	}
	if !found.IsActive {
		t.Error("IsActive = false, want true")
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), 9999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "byemail@example.com")

	found, err := db.GetUserByEmail(context.Background(), "byemail@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}

	_, err = db.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestUserUpdate_KeepsDateJoined(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "update@example.com")
	joined := user.DateJoined

	user.FirstName = "Changed"
	user.AvatarURL = "https://cdn.example.com/a.png"
	if err := db.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	found, err := db.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.FirstName != "Changed" {
		t.Errorf("FirstName = %q, want %q", found.FirstName, "Changed")
	}
	if found.AvatarURL != "https://cdn.example.com/a.png" {
		t.Errorf("AvatarURL = %q", found.AvatarURL)
	}
	if !found.DateJoined.Equal(joined) {
		t.Errorf("DateJoined changed: %v → %v", joined, found.DateJoined)
	}
	if found.DateModified.Before(joined) {
		t.Errorf("DateModified %v is before DateJoined %v", found.DateModified, joined)
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateUser(context.Background(), &model.User{ID: 404, Email: "x@example.com"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateUser() error = %v, want ErrNotFound", err)
	}
}

func TestUserDelete_CascadesToPosts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cat := createTestCategory(t, db, "Tech")
	doomed := createTestUser(t, db, "doomed@example.com")
	other := createTestUser(t, db, "other@example.com")

	p1 := createTestPost(t, db, "Doomed one", doomed, cat)
	p2 := createTestPost(t, db, "Doomed two", doomed, cat)
	kept := createTestPost(t, db, "Survivor", other, cat)

	if err := db.DeleteUser(ctx, doomed.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	for _, id := range []int64{p1.ID, p2.ID} {
		if _, err := db.GetPostByID(ctx, id); !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("post %d should have been cascaded, got err = %v", id, err)
		}
	}
	if _, err := db.GetPostByID(ctx, kept.ID); err != nil {
		t.Errorf("post by another user was removed: %v", err)
	}
}

func TestUserDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	if err := db.DeleteUser(context.Background(), 12345); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteUser() error = %v, want ErrNotFound", err)
	}
}

func TestListStaff(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestUser(t, db, "plain@example.com")
	admin := &model.User{Email: "root@example.com", FirstName: "R", LastName: "T", PasswordHash: "h", IsStaff: true, IsSuperuser: true}
	if err := db.CreateUser(ctx, admin); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	staff, err := db.ListStaff(ctx)
	if err != nil {
		t.Fatalf("ListStaff() error = %v", err)
	}
	if len(staff) != 1 || staff[0].Email != "root@example.com" {
		t.Errorf("ListStaff() = %+v, want only root@example.com", staff)
	}
}
