package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/auth"
)

func TestCreateUserThenAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.users.CreateUser(ctx, NewUser{
		Email:     "  Ada@Example.COM ",
		Password:  "pw12345",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.True(t, created.IsActive)
	assert.False(t, created.IsStaff)
	assert.False(t, created.IsSuperuser)
	assert.NotEqual(t, "pw12345", created.PasswordHash)

	got, err := env.users.Authenticate(ctx, "ADA@example.com", "pw12345")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "ada@example.com", got.Email)
}

func TestCreateUser_Validation(t *testing.T) {
	tests := []struct {
		name      string
		in        NewUser
		wantField string
	}{
		{"missing email", NewUser{Password: "pw12345", FirstName: "A", LastName: "B"}, "email"},
		{"bad email", NewUser{Email: "nope", Password: "pw12345", FirstName: "A", LastName: "B"}, "email"},
		{"missing password", NewUser{Email: "a@x.com", FirstName: "A", LastName: "B"}, "password"},
		{"short password", NewUser{Email: "a@x.com", Password: "pw1", FirstName: "A", LastName: "B"}, "password"},
		{"missing first name", NewUser{Email: "a@x.com", Password: "pw12345", LastName: "B"}, "first_name"},
		{"missing last name", NewUser{Email: "a@x.com", Password: "pw12345", FirstName: "A"}, "last_name"},
		{"confirm mismatch", NewUser{Email: "a@x.com", Password: "pw12345", PasswordConfirm: "pw54321", FirstName: "A", LastName: "B"}, "password_confirm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.users.CreateUser(context.Background(), tt.in)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := NewUser{Email: "a@x.com", Password: "pw12345", FirstName: "A", LastName: "B"}

	first, err := env.users.CreateUser(ctx, in)
	require.NoError(t, err)

	in.Email = "A@X.com"
	in.FirstName = "Impostor"
	_, err = env.users.CreateUser(ctx, in)
	require.ErrorIs(t, err, apperror.ErrValidation)

	stored, err := env.db.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "A", stored.FirstName)
}

func TestCreateSuperuser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := NewUser{Email: "root@x.com", Password: "pw12345", FirstName: "R", LastName: "Oot"}

	t.Run("defaults both flags on", func(t *testing.T) {
		u, err := env.users.CreateSuperuser(ctx, base)
		require.NoError(t, err)
		assert.True(t, u.IsStaff)
		assert.True(t, u.IsSuperuser)
	})

	t.Run("rejects is_staff=false", func(t *testing.T) {
		in := base
		in.Email = "r2@x.com"
		in.IsStaff = ptr(false)
		_, err := env.users.CreateSuperuser(ctx, in)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("rejects is_superuser=false", func(t *testing.T) {
		in := base
		in.Email = "r3@x.com"
		in.IsSuperuser = ptr(false)
		_, err := env.users.CreateSuperuser(ctx, in)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}

func TestAuthenticate_FailuresLookTheSame(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, _ := env.signUp(t, "a@x.com")

	inactive, _ := env.signUp(t, "off@x.com")
	inactive.IsActive = false
	require.NoError(t, env.db.UpdateUser(ctx, inactive))

	cases := []struct{ email, password string }{
		{"nobody@x.com", "pw12345"},
		{user.Email, "wrong-password"},
		{"off@x.com", "pw12345"},
	}

	var messages []string
	for _, c := range cases {
		_, err := env.users.Authenticate(ctx, c.email, c.password)
		require.ErrorIs(t, err, apperror.ErrUnauthenticated)
		messages = append(messages, err.Error())
	}
	assert.Equal(t, messages[0], messages[1])
	assert.Equal(t, messages[0], messages[2])
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, caller := env.signUp(t, "a@x.com")

	updated, err := env.users.UpdateProfile(ctx, caller, ProfileUpdate{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "Grace@X.com",
		AvatarURL: "https://cdn.example.com/grace.png",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, updated.ID)
	assert.Equal(t, "grace@x.com", updated.Email)
	assert.Equal(t, "Grace Hopper", updated.FullName())
	assert.False(t, updated.DateModified.Before(user.DateModified))
	assert.Equal(t, user.DateJoined.Unix(), updated.DateJoined.Unix())

	t.Run("email taken by someone else", func(t *testing.T) {
		env.signUp(t, "b@x.com")
		_, err := env.users.UpdateProfile(ctx, caller, ProfileUpdate{FirstName: "G", LastName: "H", Email: "b@x.com"})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("avatar as asset identifier", func(t *testing.T) {
		u, err := env.users.UpdateProfile(ctx, caller, ProfileUpdate{
			FirstName: "Grace",
			LastName:  "Hopper",
			Email:     "grace@x.com",
			AvatarURL: "avatars/xyz789",
		})
		require.NoError(t, err)
		assert.Equal(t, "avatars/xyz789", u.AvatarURL)
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := env.users.UpdateProfile(ctx, Caller{}, ProfileUpdate{FirstName: "G", LastName: "H", Email: "z@x.com"})
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})
}

func TestDeleteAccount_CascadesOwnPostsOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, alice := env.signUp(t, "alice@x.com")
	_, bob := env.signUp(t, "bob@x.com")

	env.createPost(t, alice, "Alice 1", "Tech")
	env.createPost(t, alice, "Alice 2", "Tech")
	bobPost := env.createPost(t, bob, "Bob 1", "Tech")

	require.NoError(t, env.users.DeleteAccount(ctx, alice))

	posts, err := env.posts.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, bobPost.ID, posts[0].ID)

	_, err = env.users.Get(ctx, alice.UserID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, caller := env.signUp(t, "a@x.com")
	env.createPost(t, caller, "First", "")
	env.createPost(t, caller, "Second", "")

	profile, err := env.users.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, profile.User.Email)
	require.Len(t, profile.Posts, 2)
	assert.Equal(t, "Second", profile.Posts[0].Title)

	_, err = env.users.GetProfile(ctx, 9999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestPromoteStaffAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signUp(t, "a@x.com")
	env.signUp(t, "b@x.com")

	u, err := env.users.PromoteStaff(ctx, "B@x.com")
	require.NoError(t, err)
	assert.True(t, u.IsStaff)

	staff, err := env.users.ListStaff(ctx)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "b@x.com", staff[0].Email)

	_, err = env.users.PromoteStaff(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestFindOrCreateExternal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	existing, _ := env.signUp(t, "a@x.com")

	t.Run("links by email", func(t *testing.T) {
		u, created, err := env.users.FindOrCreateExternal(ctx, ExternalIdentity{Email: "A@x.com", FirstName: "X", LastName: "Y"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existing.ID, u.ID)
	})

	t.Run("creates a provider-only account", func(t *testing.T) {
		u, created, err := env.users.FindOrCreateExternal(ctx, ExternalIdentity{Email: "new@x.com", FirstName: "N", LastName: "U"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, auth.UnusablePasswordPrefix, u.PasswordHash)

		_, err = env.users.Authenticate(ctx, "new@x.com", "")
		assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	})

	t.Run("requires an email", func(t *testing.T) {
		_, _, err := env.users.FindOrCreateExternal(ctx, ExternalIdentity{FirstName: "N"})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}
