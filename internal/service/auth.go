package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/auth"
	"github.com/sakif/blogsite/internal/model"
)

// AuthResult bundles the signed-in user and the session token so the
// handler can set the cookie and redirect in one step.
type AuthResult struct {
	User    *model.User
	Token   string
	Session *auth.Session
}

// AuthService is the session gateway: it turns verified credentials into
// sessions and ends them again.
type AuthService struct {
	users   *UserService
	tokens  *auth.TokenService
	revoker auth.Revoker
	logger  *slog.Logger
}

func NewAuthService(
	users *UserService,
	tokens *auth.TokenService,
	revoker auth.Revoker,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		tokens:  tokens,
		revoker: revoker,
		logger:  logger,
	}
}

// SignUp creates the account and logs it straight in.
func (s *AuthService) SignUp(ctx context.Context, in NewUser) (*AuthResult, error) {
	in.IsStaff = nil
	in.IsSuperuser = nil

	user, err := s.users.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user signed up", slog.Int64("id", user.ID))
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", slog.Int64("id", user.ID))
	return s.issue(user)
}

// Logout revokes the caller's session until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, caller Caller) error {
	if !caller.Authenticated() || caller.SessionID == "" {
		return apperror.Unauthenticated("you are not logged in")
	}
	if err := s.revoker.Revoke(ctx, caller.SessionID, caller.ExpiresAt); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	s.logger.Info("user logged out", slog.Int64("id", caller.UserID))
	return nil
}

// DeleteAccount removes the caller's account and ends the session that
// asked for it.
func (s *AuthService) DeleteAccount(ctx context.Context, caller Caller) error {
	if err := s.users.DeleteAccount(ctx, caller); err != nil {
		return err
	}
	if caller.SessionID == "" {
		return nil
	}
	if err := s.revoker.Revoke(ctx, caller.SessionID, caller.ExpiresAt); err != nil {
		// The account is already gone; a stale token now resolves to no user.
		s.logger.Warn("could not revoke session of deleted account",
			slog.Int64("id", caller.UserID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// LoginWithGitHub signs in a GitHub profile, linking it by email to an
// existing account or creating a new one.
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, errors.New("login with GitHub: no profile")
	}

	first, last := splitName(gh.Name, gh.Login)
	user, created, err := s.users.FindOrCreateExternal(ctx, ExternalIdentity{
		Email:     gh.Email,
		FirstName: first,
		LastName:  last,
		AvatarURL: gh.AvatarURL,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in with GitHub",
		slog.Int64("id", user.ID),
		slog.String("github_login", gh.Login),
		slog.Bool("new_account", created),
	)
	return s.issue(user)
}

// splitName turns a display name into first/last. A one-word name is used
// for both; an empty one falls back to the login.
func splitName(name, login string) (first, last string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return login, login
	case 1:
		return fields[0], fields[0]
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, session, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing session: %w", err)
	}
	return &AuthResult{User: user, Token: token, Session: session}, nil
}
