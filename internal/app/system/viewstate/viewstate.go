// Package viewstate decides which top-level view a request lands on.
package viewstate

import (
	"net/http"

	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// State is the landing state of the app shell.
type State string

const (
	AnonymousInitial  State = "anonymous-initial"
	AnonymousChoosing State = "anonymous-choosing-role"
	Authenticated     State = "authenticated"
)

// Dashboard names the dashboard an authenticated user sees.
type Dashboard string

const (
	DashboardAdmin Dashboard = "admin"
	DashboardUser  Dashboard = "user"
	DashboardNone  Dashboard = "none"
)

// StepChoose is the ?step value that opens the sign-in chooser.
const StepChoose = "choose"

// Resolve returns the state for r. A signed-in user is always
// Authenticated; anonymous visitors see the chooser only when they asked
// for it.
func Resolve(r *http.Request) State {
	if _, ok := auth.CurrentUser(r); ok {
		return Authenticated
	}
	if query.Get(r, "step") == StepChoose {
		return AnonymousChoosing
	}
	return AnonymousInitial
}

// DashboardFor maps an effective role to its dashboard.
func DashboardFor(role string) Dashboard {
	switch role {
	case models.RoleAdmin:
		return DashboardAdmin
	case models.RoleUser:
		return DashboardUser
	default:
		return DashboardNone
	}
}

// HomePath is where a dashboard lives. DashboardNone stays on "/".
func HomePath(d Dashboard) string {
	switch d {
	case DashboardAdmin:
		return "/admin/feed"
	case DashboardUser:
		return "/tasks"
	default:
		return "/"
	}
}
