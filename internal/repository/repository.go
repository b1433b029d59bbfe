// Package repository declares the storage contracts the service layer depends on.
// The sqlite subpackage is the production implementation.
package repository

import (
	"context"

	"github.com/sakif/blogsite/internal/model"
)

// ListOptions bounds a listing. Results are always newest first.
// A Limit of zero or less means "no limit".
type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	TouchLastLogin(ctx context.Context, id int64) error
	DeleteUser(ctx context.Context, id int64) error
	ListStaff(ctx context.Context) ([]model.User, error)
}

type CategoryRepository interface {
	// GetOrCreateCategory returns the category with exactly this name,
	// creating it if needed. created reports whether a row was inserted.
	GetOrCreateCategory(ctx context.Context, name string) (cat *model.Category, created bool, err error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	ListCategories(ctx context.Context, opts ListOptions) ([]model.Category, error)
	// DeleteCategory fails with apperror.ErrProtected while any post references it.
	DeleteCategory(ctx context.Context, id int64) error
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id int64) (*model.Post, error)
	ListPosts(ctx context.Context, opts ListOptions) ([]model.Post, error)
	ListPostsByCategory(ctx context.Context, categoryID int64) ([]model.Post, error)
	ListPostsByAuthor(ctx context.Context, authorID int64) ([]model.Post, error)
	TitleTaken(ctx context.Context, title string, excludeID int64) (bool, error)
	UpdatePost(ctx context.Context, post *model.Post) error
	DeletePost(ctx context.Context, id int64) error
}
