package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/model"
	"github.com/sakif/blogsite/internal/repository"
)

// PostInput is the create form. An empty Category files the post under
// "Uncategorized".
type PostInput struct {
	Title    string `json:"title" validate:"required,max=255"`
	Content  string `json:"content" validate:"required"`
	ImageURL string `json:"image" validate:"omitempty,max=500"`
	Category string `json:"category"`
}

// PostUpdate is the edit form. Nil fields keep their current value; an
// empty, non-nil Category moves the post to "Uncategorized".
type PostUpdate struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	ImageURL *string `json:"image"`
	Category *string `json:"category"`
}

// HomePage is the landing page: the newest posts and categories.
type HomePage struct {
	Posts      []model.Post     `json:"posts"`
	Categories []model.Category `json:"categories"`
}

var errAccountGone = apperror.Unauthenticated("your account no longer exists")

// PostService is the post catalog.
type PostService struct {
	posts      repository.PostRepository
	users      repository.UserRepository
	categories *CategoryService
	logger     *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	categories *CategoryService,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:      posts,
		users:      users,
		categories: categories,
		logger:     logger,
	}
}

func (s *PostService) Home(ctx context.Context) (*HomePage, error) {
	posts, err := s.List(ctx, HomePageLimit)
	if err != nil {
		return nil, err
	}
	cats, err := s.categories.List(ctx, HomePageLimit)
	if err != nil {
		return nil, err
	}
	return &HomePage{Posts: posts, Categories: cats}, nil
}

// List returns posts newest first. A limit of zero returns them all.
func (s *PostService) List(ctx context.Context, limit int) ([]model.Post, error) {
	posts, err := s.posts.ListPosts(ctx, repository.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

func (s *PostService) Get(ctx context.Context, id int64) (*model.Post, error) {
	return s.posts.GetPostByID(ctx, id)
}

// ListByCategory returns the posts filed under one category.
func (s *PostService) ListByCategory(ctx context.Context, categoryID int64) ([]model.Post, error) {
	detail, err := s.categories.Get(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return detail.Posts, nil
}

// Create publishes a post authored by the caller.
func (s *PostService) Create(ctx context.Context, caller Caller, in PostInput) (*model.Post, error) {
	if !caller.Authenticated() {
		return nil, apperror.Unauthenticated("you must be logged in to create a post")
	}
	// A session issued on another device outlives a deleted account.
	if _, err := s.users.GetUserByID(ctx, caller.UserID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errAccountGone
		}
		return nil, fmt.Errorf("loading caller %d: %w", caller.UserID, err)
	}

	in.Title = strings.TrimSpace(in.Title)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.checkTitle(ctx, in.Title, 0); err != nil {
		return nil, err
	}

	cat, err := s.resolveCategory(ctx, in.Category)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		Title:      in.Title,
		Content:    in.Content,
		ImageURL:   in.ImageURL,
		CategoryID: cat.ID,
		AuthorID:   caller.UserID,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return nil, err
		}
		s.logger.Error("failed to create post",
			slog.String("title", post.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.Int64("id", post.ID),
		slog.String("title", post.Title),
		slog.String("category", cat.Name),
		slog.Int64("author", caller.UserID),
	)
	return s.posts.GetPostByID(ctx, post.ID)
}

// Update edits a post. Only its author or a staff member may do so; the
// author never changes.
func (s *PostService) Update(ctx context.Context, caller Caller, id int64, in PostUpdate) (*model.Post, error) {
	post, err := s.authorize(ctx, caller, id, "edit")
	if err != nil {
		return nil, err
	}

	fields := PostInput{Title: post.Title, Content: post.Content, ImageURL: post.ImageURL}
	if in.Title != nil {
		fields.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		fields.Content = *in.Content
	}
	if in.ImageURL != nil {
		fields.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if err := validateStruct(fields); err != nil {
		return nil, err
	}
	if fields.Title != post.Title {
		if err := s.checkTitle(ctx, fields.Title, post.ID); err != nil {
			return nil, err
		}
	}

	if in.Category != nil {
		cat, err := s.resolveCategory(ctx, *in.Category)
		if err != nil {
			return nil, err
		}
		post.CategoryID = cat.ID
	}
	post.Title = fields.Title
	post.Content = fields.Content
	post.ImageURL = fields.ImageURL

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		if errors.Is(err, apperror.ErrValidation) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating post %d: %w", id, err)
	}

	s.logger.Info("post updated", slog.Int64("id", id), slog.Int64("by", caller.UserID))
	return s.posts.GetPostByID(ctx, id)
}

// Delete removes a post. Same permission rule as Update.
func (s *PostService) Delete(ctx context.Context, caller Caller, id int64) error {
	if _, err := s.authorize(ctx, caller, id, "delete"); err != nil {
		return err
	}
	if err := s.posts.DeletePost(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting post %d: %w", id, err)
	}
	s.logger.Info("post deleted", slog.Int64("id", id), slog.Int64("by", caller.UserID))
	return nil
}

// authorize loads the post and checks the caller may change it.
func (s *PostService) authorize(ctx context.Context, caller Caller, id int64, action string) (*model.Post, error) {
	if !caller.Authenticated() {
		return nil, apperror.Unauthenticated(fmt.Sprintf("you must be logged in to %s a post", action))
	}

	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID == caller.UserID {
		return post, nil
	}

	user, err := s.users.GetUserByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errAccountGone
		}
		return nil, fmt.Errorf("loading caller %d: %w", caller.UserID, err)
	}
	if !user.CanModerate() {
		return nil, apperror.Forbidden(fmt.Sprintf("you can only %s your own posts", action))
	}
	return post, nil
}

// checkTitle runs before the category is resolved so a duplicate title
// does not leave a freshly created category behind. The UNIQUE index still
// catches a concurrent duplicate.
func (s *PostService) checkTitle(ctx context.Context, title string, excludeID int64) error {
	taken, err := s.posts.TitleTaken(ctx, title, excludeID)
	if err != nil {
		return fmt.Errorf("checking title: %w", err)
	}
	if taken {
		return apperror.ValidationFailed("title", "a post with this title already exists")
	}
	return nil
}

func (s *PostService) resolveCategory(ctx context.Context, name string) (*model.Category, error) {
	if strings.TrimSpace(name) == "" {
		name = model.UncategorizedName
	}
	cat, _, err := s.categories.GetOrCreate(ctx, name)
	return cat, err
}
