package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/service"
)

// UserHandler serves profiles. The edit and delete routes carry an {id}
// for URL compatibility, but they always act on the logged-in user.
type UserHandler struct {
	users   *service.UserService
	auth    *service.AuthService
	cookies CookieConfig
	logger  *slog.Logger
}

func NewUserHandler(users *service.UserService, authSvc *service.AuthService, cookies CookieConfig, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, auth: authSvc, cookies: cookies, logger: logger}
}

// HandleProfile shows a user and their posts.
//
// HTTP: GET /user-profile/{id}
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "user")
	if err != nil {
		writeError(w, err)
		return
	}
	profile, err := h.users.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HTTP: GET /update-profile/{id}
func (h *UserHandler) HandleUpdateForm(w http.ResponseWriter, r *http.Request) {
	caller := callerOf(r)
	if !caller.Authenticated() {
		writeError(w, apperror.Unauthenticated("you must be logged in to update your profile"))
		return
	}
	user, err := h.users.Get(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// HTTP: POST /update-profile/{id}
// FORM: first_name, last_name, email, avatar (URL, optional)
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), callerOf(r), service.ProfileUpdate{
		FirstName: in.get("first_name"),
		LastName:  in.get("last_name"),
		Email:     in.get("email"),
		AvatarURL: in.get("avatar"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	seeOther(w, r, fmt.Sprintf("/user-profile/%d", user.ID))
}

// HandleDelete removes the caller's account and their posts, then ends
// the session.
//
// HTTP: POST /delete-account/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.DeleteAccount(r.Context(), callerOf(r)); err != nil {
		writeError(w, err)
		return
	}
	h.cookies.clearSession(w)
	seeOther(w, r, "/")
}
