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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, username, first_name, last_name, password, avatar_url,
	is_active, is_staff, is_superuser, date_joined, date_modified, last_login`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		username sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&username,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&u.AvatarURL,
		&u.IsActive,
		&u.IsStaff,
		&u.IsSuperuser,
		&u.DateJoined,
		&u.DateModified,
		&u.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	u.Username = username.String
	return &u, nil
}

// nullable maps "" to NULL so optional UNIQUE columns allow many blanks.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// userWriteError translates constraint failures on the users table into
// validation errors naming the offending field.
func userWriteError(op string, err error) error {
	if isUniqueViolation(err) {
		switch uniqueColumn(err) {
		case "username":
			return apperror.ValidationFailed("username", "a user with this username already exists")
		default:
			return apperror.ValidationFailed("email", "a user with this email already exists")
		}
	}
	return fmt.Errorf("sqlite: %s user: %w", op, err)
}

// CreateUser inserts a new account. The caller must have hashed the password.
// On success user.ID and all timestamps are populated.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.DateJoined = now
	user.DateModified = now
	user.LastLogin = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (email, username, first_name, last_name, password, avatar_url,
			is_active, is_staff, is_superuser, date_joined, date_modified, last_login)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email,
		nullable(user.Username),
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.AvatarURL,
		user.IsActive,
		user.IsStaff,
		user.IsSuperuser,
		user.DateJoined,
		user.DateModified,
		user.LastLogin,
	)
	if err != nil {
		return userWriteError("creating", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by primary key.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail looks a user up by the already-normalized email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UpdateUser saves every mutable column. date_joined is never rewritten;
// date_modified and last_login move to "now" on every save.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.DateModified = now
	user.LastLogin = now

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET email = ?, username = ?, first_name = ?, last_name = ?, password = ?,
		     avatar_url = ?, is_active = ?, is_staff = ?, is_superuser = ?,
		     date_modified = ?, last_login = ?
		 WHERE id = ?`,
		user.Email,
		nullable(user.Username),
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.AvatarURL,
		user.IsActive,
		user.IsStaff,
		user.IsSuperuser,
		user.DateModified,
		user.LastLogin,
		user.ID,
	)
	if err != nil {
		return userWriteError("updating", err)
	}
	return requireOneRow(result, "user", user.ID)
}

// TouchLastLogin stamps a successful login.
func (db *DB) TouchLastLogin(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching last_login for user %d: %w", id, err)
	}
	return requireOneRow(result, "user", id)
}

// DeleteUser removes the account. The posts.author_id foreign key cascades,
// so every post the user wrote goes with it in the same statement.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
	}
	return requireOneRow(result, "user", id)
}

// ListStaff returns staff and superuser accounts, most recently joined first.
func (db *DB) ListStaff(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE is_staff = 1 OR is_superuser = 1
		 ORDER BY date_joined DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing staff: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// requireOneRow turns "0 rows affected" into a NotFound error.
func requireOneRow(result sql.Result, resource string, id any) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
