package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// CookieName is the cookie that carries the session token.
const CookieName = "session"

type contextKey string

const sessionKey contextKey = "session"

// Authenticator resolves the session attached to a request. A token is
// accepted when its signature and expiry check out and it has not been
// revoked by a logout.
type Authenticator struct {
	tokens  *TokenService
	revoker Revoker
	logger  *slog.Logger
}

func NewAuthenticator(tokens *TokenService, revoker Revoker, logger *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, revoker: revoker, logger: logger}
}

// Revoker is the store consulted for logged-out sessions.
func (a *Authenticator) Revoker() Revoker {
	return a.revoker
}

// RequireAuth rejects requests without a live session with 401.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := a.sessionFor(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthenticated","message":"you must be logged in to do that"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// OptionalAuth attaches the session when there is one and never rejects.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session, ok := a.sessionFor(r); ok {
			r = r.WithContext(WithSession(r.Context(), session))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) sessionFor(r *http.Request) (*Session, bool) {
	raw := extractToken(r)
	if raw == "" {
		return nil, false
	}

	session, err := a.tokens.Validate(raw)
	if err != nil {
		a.logger.Debug("rejecting session token", slog.String("error", err.Error()))
		return nil, false
	}

	revoked, err := a.revoker.IsRevoked(r.Context(), session.ID)
	if err != nil {
		// Fail closed: an unreachable revocation store must not revive logged-out sessions.
		a.logger.Error("session revocation check failed", slog.String("error", err.Error()))
		return nil, false
	}
	if revoked {
		return nil, false
	}
	return session, true
}

// extractToken reads the session cookie, falling back to a bearer token
// for non-browser clients.
func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the session placed by RequireAuth or OptionalAuth.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}
