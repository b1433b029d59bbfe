// Package service holds the business rules of the blog, between the HTTP
// handlers and the repositories:
//
//	Handler (HTTP) → Service (rules, permissions) → Repository (SQL)
//
// Services accept plain values and return domain errors from apperror, so
// the same operations serve the HTTP server and the admin CLI. Every
// operation that changes data takes an explicit Caller instead of reading
// a "current user" from ambient state.
package service

import (
	"time"

	"github.com/sakif/blogsite/internal/auth"
)

// HomePageLimit is how many posts and categories the home page shows.
const HomePageLimit = 3

// Caller identifies who is performing an operation. The zero value is an
// anonymous visitor.
type Caller struct {
	UserID    int64
	SessionID string
	ExpiresAt time.Time
}

// CallerFromSession builds the caller for a request that carries a session.
func CallerFromSession(s *auth.Session) Caller {
	if s == nil {
		return Caller{}
	}
	return Caller{UserID: s.UserID, SessionID: s.ID, ExpiresAt: s.ExpiresAt}
}

func (c Caller) Authenticated() bool {
	return c.UserID != 0
}
