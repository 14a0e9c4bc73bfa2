package handler

import (
	"net/http"
	"strings"

	"storefront/internal/apiclient"
	"storefront/internal/events"
	"storefront/internal/guard"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// AuthHandler serves login, registration and logout.
type AuthHandler struct {
	base
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(deps Deps, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{base: newBase(deps, "auth", logger)}
}

type loginView struct {
	Email string
	Next  string
}

// LoginForm renders the login form. Signed-in users go to their landing page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	snap := RequestFrom(r).Session.Snapshot()
	if snap.Authenticated() {
		h.redirect(w, r, guard.HomeFor(snap.Role()))
		return
	}
	h.render(w, r, http.StatusOK, "login.html", h.page(r, "Log in", loginView{
		Next: nextParam(r.URL.Query().Get("next")),
	}))
}

// Login exchanges the credentials for a session. On success it returns to the page
// that required login, or to the role's landing page.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	creds := model.Credentials{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}
	next := nextParam(r.FormValue("next"))
	view := loginView{Email: strings.TrimSpace(creds.Email), Next: next}

	identity, err := q.Services.Auth.Login(r.Context(), creds)
	if err != nil {
		h.logger.Info().Err(err).Str("email", view.Email).Msg("login rejected")
		q.Notes.Error(apiclient.MessageOf(err, "Login failed, please try again"))
		h.render(w, r, http.StatusUnauthorized, "login.html", h.page(r, "Log in", view))
		return
	}

	if err := q.Session.Login(r.Context(), identity); err != nil {
		h.logger.Error().Err(err).Msg("failed to persist session")
		q.Notes.Error("Could not start your session, please try again")
		h.render(w, r, http.StatusInternalServerError, "login.html", h.page(r, "Log in", view))
		return
	}

	h.publish(r, events.EventUserLoggedIn, identity.ID, events.UserLoggedInPayload{
		UserID: identity.ID,
		Role:   identity.Role.String(),
	})
	h.logger.Info().Str("user_id", identity.ID).Str("role", identity.Role.String()).Msg("user logged in")

	q.Notes.Success("Welcome back, " + identity.Name)
	target := guard.HomeFor(identity.Role)
	if next != "" {
		target = next
	}
	h.redirect(w, r, target)
}

type registerView struct {
	Name  string
	Email string
}

// RegisterForm renders the registration form.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register.html", h.page(r, "Create an account", registerView{}))
}

// Register creates an account, then moves on to the login page after a short delay.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	reg := model.Registration{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	view := registerView{Name: reg.Name, Email: reg.Email}

	if err := q.Services.Auth.Register(r.Context(), reg); err != nil {
		h.logger.Info().Err(err).Str("email", reg.Email).Msg("registration rejected")
		q.Notes.Error(apiclient.MessageOf(err, "Registration failed, please try again"))
		h.render(w, r, http.StatusUnprocessableEntity, "register.html", h.page(r, "Create an account", view))
		return
	}

	q.Notes.Success("Registration successful, please log in")
	h.delayedRedirect(w, r, "Account created", guard.LoginPath, h.RegisterDelay,
		"Your account has been created. Taking you to the login page.")
}

// Logout ends the session. The cart empties with it.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	if err := q.Session.Logout(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("failed to clear session")
	}
	q.Notes.Info("You have been logged out")
	h.redirect(w, r, guard.HomePath)
}

// nextParam keeps a return path only when it is local and not the home page.
func nextParam(next string) string {
	safe := guard.SafeNext(next)
	if safe == guard.HomePath {
		return ""
	}
	return safe
}
