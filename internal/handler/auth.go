package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/blogsite/internal/auth"
	"github.com/sakif/blogsite/internal/service"
)

const stateCookieName = "oauth_state"

// GitHubSignIn is the OAuth flow the GitHub routes need; *auth.GitHubProvider
// implements it.
type GitHubSignIn interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler runs sign-up, login and logout, plus the optional GitHub
// sign-in.
type AuthHandler struct {
	auth    *service.AuthService
	github  GitHubSignIn // nil when GitHub sign-in is not configured
	cookies CookieConfig
	logger  *slog.Logger
}

func NewAuthHandler(authSvc *service.AuthService, github GitHubSignIn, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authSvc, github: github, cookies: cookies, logger: logger}
}

type authForm struct {
	Fields      []string `json:"fields"`
	GitHubLogin string   `json:"githubLogin,omitempty"`
	LoggedIn    bool     `json:"loggedIn"`
}

func (h *AuthHandler) form(r *http.Request, fields ...string) authForm {
	f := authForm{Fields: fields, LoggedIn: callerOf(r).Authenticated()}
	if h.github != nil {
		f.GitHubLogin = "/auth/github/login"
	}
	return f
}

// HTTP: GET /signup
func (h *AuthHandler) HandleSignUpForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.form(r, "email", "first_name", "last_name", "password", "password_confirm"))
}

// HandleSignUp creates the account and logs it in.
//
// HTTP: POST /signup
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.SignUp(r.Context(), service.NewUser{
		Email:           in.get("email"),
		Password:        in.get("password"),
		PasswordConfirm: in.get("password_confirm"),
		FirstName:       in.get("first_name"),
		LastName:        in.get("last_name"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.setSession(w, res.Token, res.Session.ExpiresAt)
	seeOther(w, r, "/")
}

// HTTP: GET /login
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.form(r, "email", "password"))
}

// HTTP: POST /login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), in.get("email"), in.get("password"))
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.setSession(w, res.Token, res.Session.ExpiresAt)
	seeOther(w, r, "/all")
}

// HTTP: POST /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), callerOf(r)); err != nil {
		writeError(w, err)
		return
	}
	h.cookies.clearSession(w)
	seeOther(w, r, "/")
}

// HandleGitHubLogin sends the browser to GitHub. The random state goes in
// a short-lived cookie and must come back unchanged on the callback.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HTTP: GET /auth/github/callback?code=...&state=...
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("github callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_state", Message: "invalid OAuth state"})
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("github callback: authorization denied", slog.String("error", errParam))
		seeOther(w, r, "/login?auth=denied")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: "missing OAuth code"})
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github callback: exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "upstream_error", Message: "GitHub sign-in failed"})
		return
	}

	res, err := h.auth.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cookies.setSession(w, res.Token, res.Session.ExpiresAt)
	seeOther(w, r, "/")
}
