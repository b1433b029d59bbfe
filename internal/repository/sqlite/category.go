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

var _ repository.CategoryRepository = (*DB)(nil)

const categoryColumns = `id, name, created_at, modified_at`

func scanCategory(row rowScanner) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.ModifiedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOrCreateCategory looks the name up with an exact, case-sensitive match
// and inserts it when absent.
//
// Two requests can both miss on the lookup and race to insert the same new
// name. The UNIQUE index on categories.name lets exactly one insert win; the
// loser sees a constraint violation and falls back to reading the winner's row.
func (db *DB) GetOrCreateCategory(ctx context.Context, name string) (*model.Category, bool, error) {
	cat, err := db.getCategoryByName(ctx, name)
	if err == nil {
		return cat, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO categories (name, created_at, modified_at) VALUES (?, ?, ?)`,
		name, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			cat, err := db.getCategoryByName(ctx, name)
			if errors.Is(err, apperror.ErrNotFound) {
				// The winning row was deleted before we could read it.
				return nil, false, apperror.Conflict("category", name)
			}
			if err != nil {
				return nil, false, fmt.Errorf("sqlite: re-reading category %q after insert race: %w", name, err)
			}
			return cat, false, nil
		}
		return nil, false, fmt.Errorf("sqlite: creating category %q: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: reading new category id: %w", err)
	}

	return &model.Category{ID: id, Name: name, CreatedAt: now, ModifiedAt: now}, true, nil
}

func (db *DB) getCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	cat, err := scanCategory(db.conn.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE name = ?`, name,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("category", name)
		}
		return nil, fmt.Errorf("sqlite: getting category %q: %w", name, err)
	}
	return cat, nil
}

// GetCategoryByID returns apperror.ErrNotFound for an unknown id.
func (db *DB) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	cat, err := scanCategory(db.conn.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("category", id)
		}
		return nil, fmt.Errorf("sqlite: getting category %d: %w", id, err)
	}
	return cat, nil
}

// ListCategories returns categories newest first.
func (db *DB) ListCategories(ctx context.Context, opts repository.ListOptions) ([]model.Category, error) {
	limit, offset := bounds(opts)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}
	return categories, nil
}

// DeleteCategory removes an unreferenced category.
//
// The reference count and the delete share one transaction so a post filed
// under the category between the two statements cannot slip through. The
// RESTRICT foreign key is the backstop if it somehow does.
func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning category delete: %w", err)
	}
	defer tx.Rollback()

	var refs int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE category_id = ?`, id,
	).Scan(&refs); err != nil {
		return fmt.Errorf("sqlite: counting posts in category %d: %w", id, err)
	}
	if refs > 0 {
		return apperror.Protected("category", id, fmt.Sprintf("%d post(s)", refs))
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.Protected("category", id, "posts")
		}
		return fmt.Errorf("sqlite: deleting category %d: %w", id, err)
	}
	if err := requireOneRow(result, "category", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing category delete: %w", err)
	}
	return nil
}

// bounds converts ListOptions into LIMIT/OFFSET values. SQLite treats a
// negative LIMIT as "no limit".
func bounds(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = -1
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
