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
	"github.com/sakif/blogsite/internal/repository"
)

// invalidCredentials is the single message for every failed login, so a
// response never reveals whether the email exists.
const invalidCredentials = "invalid email or password"

// NewUser carries the fields of a sign-up or an admin-created account.
// IsStaff and IsSuperuser are nil when the caller does not set them.
type NewUser struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"omitempty,eqfield=Password"`
	FirstName       string `json:"first_name" validate:"required,max=150"`
	LastName        string `json:"last_name" validate:"required,max=150"`
	Username        string `json:"username" validate:"omitempty,max=150"`
	AvatarURL       string `json:"avatar" validate:"omitempty,max=500"`
	IsStaff         *bool  `json:"-"`
	IsSuperuser     *bool  `json:"-"`
}

// ProfileUpdate is the self-service profile form.
type ProfileUpdate struct {
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Email     string `json:"email" validate:"required,email,max=254"`
	AvatarURL string `json:"avatar" validate:"omitempty,max=500"`
}

// Profile is a user together with the posts they wrote.
type Profile struct {
	User  *model.User  `json:"user"`
	Posts []model.Post `json:"posts"`
}

// UserService is the user directory: accounts, credentials and profiles.
type UserService struct {
	users     repository.UserRepository
	posts     repository.PostRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	posts repository.PostRepository,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		posts:     posts,
		passwords: passwords,
		logger:    logger,
	}
}

// NormalizeEmail trims and lowercases an address so lookups are
// insensitive to how the user typed it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers a regular account. Staff and superuser flags
// default to false.
func (s *UserService) CreateUser(ctx context.Context, in NewUser) (*model.User, error) {
	return s.create(ctx, in, false)
}

// CreateSuperuser registers an account with full admin rights. Asking for
// a superuser with is_staff or is_superuser set to false is an error.
func (s *UserService) CreateSuperuser(ctx context.Context, in NewUser) (*model.User, error) {
	if in.IsStaff != nil && !*in.IsStaff {
		return nil, apperror.ValidationFailed("is_staff", "superuser must have is_staff=true")
	}
	if in.IsSuperuser != nil && !*in.IsSuperuser {
		return nil, apperror.ValidationFailed("is_superuser", "superuser must have is_superuser=true")
	}
	return s.create(ctx, in, true)
}

func (s *UserService) create(ctx context.Context, in NewUser, superuser bool) (*model.User, error) {
	in.Email = NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Username = strings.TrimSpace(in.Username)
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)

	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		AvatarURL:    in.AvatarURL,
		IsActive:     true,
		IsStaff:      superuser || boolOr(in.IsStaff, false),
		IsSuperuser:  superuser || boolOr(in.IsSuperuser, false),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.Int64("id", user.ID),
		slog.String("email", user.Email),
		slog.Bool("superuser", user.IsSuperuser),
	)
	return user, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// Authenticate checks an email/password pair. Unknown email, wrong
// password and deactivated account all produce the same error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated(invalidCredentials)
		}
		return nil, fmt.Errorf("authenticating: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			// Unusable or corrupt hashes land here; still just a failed login.
			s.logger.Debug("password check failed", slog.Int64("user_id", user.ID), slog.String("error", err.Error()))
		}
		return nil, apperror.Unauthenticated(invalidCredentials)
	}
	if !user.IsActive {
		return nil, apperror.Unauthenticated(invalidCredentials)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("recording login: %w", err)
	}
	return user, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// GetProfile returns the user and everything they have posted.
func (s *UserService) GetProfile(ctx context.Context, id int64) (*Profile, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListPostsByAuthor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing posts for user %d: %w", id, err)
	}
	return &Profile{User: user, Posts: posts}, nil
}

// UpdateProfile edits the caller's own profile. There is no way to
// target another account.
func (s *UserService) UpdateProfile(ctx context.Context, caller Caller, in ProfileUpdate) (*model.User, error) {
	if !caller.Authenticated() {
		return nil, apperror.Unauthenticated("you must be logged in to update your profile")
	}

	in.Email = NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.Email = in.Email
	user.AvatarURL = in.AvatarURL

	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrValidation) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	s.logger.Info("profile updated", slog.Int64("id", user.ID))
	return user, nil
}

// DeleteAccount removes the caller's account and, by cascade, their posts.
func (s *UserService) DeleteAccount(ctx context.Context, caller Caller) error {
	if !caller.Authenticated() {
		return apperror.Unauthenticated("you must be logged in to delete your account")
	}
	if err := s.users.DeleteUser(ctx, caller.UserID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting account: %w", err)
	}
	s.logger.Info("account deleted", slog.Int64("id", caller.UserID))
	return nil
}

// PromoteStaff grants staff rights to the account with this email.
func (s *UserService) PromoteStaff(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user.IsStaff {
		return user, nil
	}
	user.IsStaff = true
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("promoting user %d: %w", user.ID, err)
	}
	s.logger.Info("user promoted to staff", slog.Int64("id", user.ID))
	return user, nil
}

func (s *UserService) ListStaff(ctx context.Context) ([]model.User, error) {
	return s.users.ListStaff(ctx)
}

// ExternalIdentity is a profile vouched for by an outside provider.
type ExternalIdentity struct {
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}

// FindOrCreateExternal signs in a provider-verified identity. An existing
// account with the same email is reused; otherwise a new one is created
// with a password that can never match, so it can only sign in through
// the provider.
func (s *UserService) FindOrCreateExternal(ctx context.Context, id ExternalIdentity) (*model.User, bool, error) {
	email := NormalizeEmail(id.Email)
	if email == "" {
		return nil, false, apperror.ValidationFailed("email", "the provider did not share an email address")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if !user.IsActive {
			return nil, false, apperror.Unauthenticated("this account is disabled")
		}
		if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
			return nil, false, fmt.Errorf("recording login: %w", err)
		}
		return user, false, nil
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, false, fmt.Errorf("looking up %s: %w", email, err)
	}

	user = &model.User{
		Email:        email,
		FirstName:    id.FirstName,
		LastName:     id.LastName,
		PasswordHash: auth.UnusablePasswordPrefix,
		AvatarURL:    id.AvatarURL,
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("creating user from provider: %w", err)
	}

	s.logger.Info("user created from external sign-in", slog.Int64("id", user.ID), slog.String("email", email))
	return user, true, nil
}
