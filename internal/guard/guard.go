// Package guard gates routes behind session and role checks.
package guard

import (
	"net/http"
	"net/url"
	"strings"

	"storefront/internal/model"
	"storefront/internal/session"
)

// Action is what the router should do with a request.
type Action int

const (
	ActionRender Action = iota
	ActionLoading
	ActionRedirect
)

func (a Action) String() string {
	switch a {
	case ActionLoading:
		return "loading"
	case ActionRedirect:
		return "redirect"
	default:
		return "render"
	}
}

// Decision is the outcome of Decide.
type Decision struct {
	Action Action
	Target string
}

// Default landing pages per role.
const (
	LoginPath          = "/login"
	HomePath           = "/"
	StaffDashboardPath = "/staff/dashboard"
	AdminDashboardPath = "/admin/dashboard"
)

// Decide gates path for snap. An empty allowed set only requires a session.
func Decide(snap session.Snapshot, allowed []model.Role, path string) Decision {
	switch snap.State {
	case session.StateUnknown:
		return Decision{Action: ActionLoading}
	case session.StateAnonymous:
		return Decision{Action: ActionRedirect, Target: LoginRedirect(path)}
	}

	if len(allowed) == 0 {
		return Decision{Action: ActionRender}
	}
	role := snap.Role()
	for _, r := range allowed {
		if r == role {
			return Decision{Action: ActionRender}
		}
	}
	return Decision{Action: ActionRedirect, Target: HomeFor(role)}
}

// HomeFor is the landing page of a role.
func HomeFor(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return AdminDashboardPath
	case model.RoleStaff:
		return StaffDashboardPath
	case model.RoleCustomer, model.RoleNone:
		return HomePath
	default:
		return HomePath
	}
}

// LoginRedirect is the login URL that returns to path afterwards.
func LoginRedirect(path string) string {
	next := SafeNext(path)
	if next == HomePath {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"next": {next}}.Encode()
}

// SafeNext returns next when it is a local absolute path, and HomePath otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") {
		return HomePath
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") || strings.ContainsAny(next, "\r\n") {
		return HomePath
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return HomePath
	}
	if u.Path == LoginPath {
		return HomePath
	}
	return next
}

// SnapshotFunc extracts the session snapshot for a request.
type SnapshotFunc func(r *http.Request) session.Snapshot

// Middleware applies Decide to each request. Loading renders a 503 with Retry-After;
// redirects use 303.
func Middleware(snapshot SnapshotFunc, allowed ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Decide(snapshot(r), allowed, r.URL.RequestURI())
			switch d.Action {
			case ActionLoading:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Loading session, please retry.", http.StatusServiceUnavailable)
			case ActionRedirect:
				http.Redirect(w, r, d.Target, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
