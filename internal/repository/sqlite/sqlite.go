// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs no
// C toolchain. The driver registers itself with database/sql under the name
// "sqlite" via the blank import below.
//
// Referential rules live in the schema, not in Go code:
//   - posts.author_id   ON DELETE CASCADE   deleting a user removes their posts
//   - posts.category_id ON DELETE RESTRICT  a category in use cannot be deleted
//
// Both only work with foreign keys enabled, which is a per-connection setting
// in SQLite. That is why the pragma travels in the DSN instead of a one-off Exec.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository interface.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/blog.db"  → file-based database (persistent)
//   - ":memory:"      → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand new, empty database.
	// Pin the pool to one connection so all queries see the same data.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// newWithConn wraps an already open pool without migrating it.
// Tests use it to drive the repository with go-sqlmock.
func newWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// dsn appends the per-connection pragmas to the database path.
func dsn(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	if dbPath != ":memory:" {
		// WAL lets readers proceed while a write is in flight.
		q.Add("_pragma", "journal_mode(WAL)")
	}
	q.Set("_time_format", "sqlite")
	return dbPath + "?" + q.Encode()
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// PingContext reports whether the database is reachable. Used by the health check.
func (db *DB) PingContext(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrations run in order on every start. Each statement is idempotent.
var migrations = []struct {
	name string
	sql  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			email         TEXT NOT NULL UNIQUE,
			username      TEXT UNIQUE,
			first_name    TEXT NOT NULL,
			last_name     TEXT NOT NULL,
			password      TEXT NOT NULL,
			avatar_url    TEXT NOT NULL DEFAULT '',
			is_active     BOOLEAN NOT NULL DEFAULT 1,
			is_staff      BOOLEAN NOT NULL DEFAULT 0,
			is_superuser  BOOLEAN NOT NULL DEFAULT 0,
			date_joined   DATETIME NOT NULL,
			date_modified DATETIME NOT NULL,
			last_login    DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_users_date_joined ON users(date_joined);
	`},
	{"categories", `
		CREATE TABLE IF NOT EXISTS categories (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL UNIQUE,
			created_at  DATETIME NOT NULL,
			modified_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_categories_created_at ON categories(created_at);
	`},
	{"posts", `
		CREATE TABLE IF NOT EXISTS posts (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			title       TEXT NOT NULL UNIQUE,
			content     TEXT NOT NULL,
			image_url   TEXT NOT NULL DEFAULT '',
			category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
			author_id   INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at  DATETIME NOT NULL,
			modified_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
		CREATE INDEX IF NOT EXISTS idx_posts_category_id ON posts(category_id);
		CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts(author_id);
	`},
	{"comments", `
		CREATE TABLE IF NOT EXISTS comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT
		);
	`},
}

func (db *DB) migrate() error {
	for _, m := range migrations {
		if _, err := db.conn.Exec(m.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", m.name, err)
		}
	}
	return nil
}
