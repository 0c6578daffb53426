// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/domain/models"
)

// UserCtx returns the effective role (lowercased), display name, uid and a
// found flag for the signed-in user. Without a user it returns
// "", "", "", false.
func UserCtx(r *http.Request) (role string, name string, uid string, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok || user.ID == "" {
		return "", "", "", false
	}
	return strings.ToLower(user.Role), user.Name, user.ID, true
}

// IsSuperAdmin reports whether the current request's user is on the
// super-admin allowlist.
func IsSuperAdmin(r *http.Request) bool {
	user, ok := auth.CurrentUser(r)
	return ok && user.IsSuperAdmin
}

// IsAdmin reports whether the current request's user resolves to admin.
func IsAdmin(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role == models.RoleAdmin
}

// HasProfile reports whether the signed-in user has a profile document.
func HasProfile(r *http.Request) bool {
	user, ok := auth.CurrentUser(r)
	return ok && user.HasProfile
}
