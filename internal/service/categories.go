package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/model"
	"github.com/sakif/blogsite/internal/repository"
)

const MaxCategoryNameLength = 255

// CategoryDetail is a category with the posts filed under it.
type CategoryDetail struct {
	Category *model.Category `json:"category"`
	Posts    []model.Post    `json:"posts"`
}

// CategoryService is the category catalog. Categories are never authored
// directly; they come into existence when a post names them.
type CategoryService struct {
	categories repository.CategoryRepository
	posts      repository.PostRepository
	logger     *slog.Logger
}

func NewCategoryService(
	categories repository.CategoryRepository,
	posts repository.PostRepository,
	logger *slog.Logger,
) *CategoryService {
	return &CategoryService{
		categories: categories,
		posts:      posts,
		logger:     logger,
	}
}

// EnsureDefault makes sure the "Uncategorized" category exists. The server
// calls it once at startup.
func (s *CategoryService) EnsureDefault(ctx context.Context) (*model.Category, error) {
	cat, created, err := s.GetOrCreate(ctx, model.UncategorizedName)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("default category created", slog.Int64("id", cat.ID))
	}
	return cat, nil
}

// GetOrCreate resolves a category by exact name, creating it on first use.
func (s *CategoryService) GetOrCreate(ctx context.Context, name string) (*model.Category, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, apperror.ValidationFailed("category", "category name is required")
	}
	if utf8.RuneCountInString(name) > MaxCategoryNameLength {
		return nil, false, apperror.ValidationFailed("category",
			fmt.Sprintf("category name must be %d characters or less", MaxCategoryNameLength))
	}

	cat, created, err := s.categories.GetOrCreateCategory(ctx, name)
	if err != nil {
		s.logger.Error("failed to resolve category",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, false, fmt.Errorf("resolving category %q: %w", name, err)
	}
	if created {
		s.logger.Info("category created", slog.Int64("id", cat.ID), slog.String("name", cat.Name))
	}
	return cat, created, nil
}

// List returns categories newest first. A limit of zero returns them all.
func (s *CategoryService) List(ctx context.Context, limit int) ([]model.Category, error) {
	cats, err := s.categories.ListCategories(ctx, repository.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}

// Get returns the category and its posts.
func (s *CategoryService) Get(ctx context.Context, id int64) (*CategoryDetail, error) {
	cat, err := s.categories.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPostsByCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing posts in category %d: %w", id, err)
	}
	return &CategoryDetail{Category: cat, Posts: posts}, nil
}

// Delete removes a category nobody files posts under any more. While a
// post references it the call fails with apperror.ErrProtected.
func (s *CategoryService) Delete(ctx context.Context, caller Caller, id int64) error {
	if !caller.Authenticated() {
		return apperror.Unauthenticated("you must be logged in to delete a category")
	}

	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrProtected) || errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete category",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting category %d: %w", id, err)
	}

	s.logger.Info("category deleted", slog.Int64("id", id), slog.Int64("by", caller.UserID))
	return nil
}
