package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/model"
	"github.com/sakif/blogsite/internal/repository"
)

var _ repository.PostRepository = (*DB)(nil)

// postSelect joins in the category name and the author's display name
// (username when set, email otherwise) so listings need one query.
const postSelect = `
	SELECT p.id, p.title, p.content, p.image_url,
	       p.category_id, c.name,
	       p.author_id, COALESCE(u.username, u.email),
	       p.created_at, p.modified_at
	FROM posts p
	JOIN categories c ON c.id = p.category_id
	JOIN users u ON u.id = p.author_id`

const postOrder = ` ORDER BY p.created_at DESC, p.id DESC`

func scanPost(row rowScanner) (*model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.ImageURL,
		&p.CategoryID, &p.CategoryName,
		&p.AuthorID, &p.AuthorName,
		&p.CreatedAt, &p.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func postWriteError(op string, err error) error {
	if isUniqueViolation(err) {
		return apperror.ValidationFailed("title", "a post with this title already exists")
	}
	if isForeignKeyViolation(err) {
		return apperror.ValidationFailed("category", "post must reference an existing category and author")
	}
	return fmt.Errorf("sqlite: %s post: %w", op, err)
}

// CreatePost inserts a post. CategoryID and AuthorID must reference
// existing rows; the foreign keys reject anything else.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.ModifiedAt = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (title, content, image_url, category_id, author_id, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		post.Title,
		post.Content,
		post.ImageURL,
		post.CategoryID,
		post.AuthorID,
		post.CreatedAt,
		post.ModifiedAt,
	)
	if err != nil {
		return postWriteError("creating", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new post id: %w", err)
	}
	post.ID = id
	return nil
}

// GetPostByID returns apperror.ErrNotFound for an unknown id.
func (db *DB) GetPostByID(ctx context.Context, id int64) (*model.Post, error) {
	p, err := scanPost(db.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %d: %w", id, err)
	}
	return p, nil
}

// ListPosts returns posts newest first.
func (db *DB) ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	limit, offset := bounds(opts)
	return db.queryPosts(ctx, "listing posts",
		postSelect+postOrder+` LIMIT ? OFFSET ?`, limit, offset)
}

// ListPostsByCategory returns every post filed under the category, newest first.
func (db *DB) ListPostsByCategory(ctx context.Context, categoryID int64) ([]model.Post, error) {
	return db.queryPosts(ctx, "listing posts by category",
		postSelect+` WHERE p.category_id = ?`+postOrder, categoryID)
}

// ListPostsByAuthor returns every post the user wrote, newest first.
func (db *DB) ListPostsByAuthor(ctx context.Context, authorID int64) ([]model.Post, error) {
	return db.queryPosts(ctx, "listing posts by author",
		postSelect+` WHERE p.author_id = ?`+postOrder, authorID)
}

func (db *DB) queryPosts(ctx context.Context, op, query string, args ...any) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	return posts, nil
}

// TitleTaken reports whether another post already uses title.
// excludeID lets an update keep its own title; pass 0 on create.
func (db *DB) TitleTaken(ctx context.Context, title string, excludeID int64) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE title = ? AND id != ?)`, title, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking post title: %w", err)
	}
	return exists, nil
}

// UpdatePost saves title, content, image and category. The author and
// created_at are immutable.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	post.ModifiedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE posts
		 SET title = ?, content = ?, image_url = ?, category_id = ?, modified_at = ?
		 WHERE id = ?`,
		post.Title,
		post.Content,
		post.ImageURL,
		post.CategoryID,
		post.ModifiedAt,
		post.ID,
	)
	if err != nil {
		return postWriteError("updating", err)
	}
	return requireOneRow(result, "post", post.ID)
}

// DeletePost removes a post by id.
func (db *DB) DeletePost(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %d: %w", id, err)
	}
	return requireOneRow(result, "post", id)
}
