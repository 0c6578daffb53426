// internal/app/features/userinfo/handler.go
package userinfo

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/app/system/viewstate"
)

// Handler reports the signed-in user to client-side code.
type Handler struct{}

// NewHandler creates a new userinfo handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Info is the JSON body of GET /api/me.
type Info struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	UID             string `json:"uid"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	IsSuperAdmin    bool   `json:"isSuperAdmin"`
	Home            string `json:"home"`
}

// ServeUserInfo returns the current user's identity, effective role and
// home path. The sign-in chooser polls it after a popup sign-in.
func (h *Handler) ServeUserInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	info := Info{Home: "/"}
	if u, ok := auth.CurrentUser(r); ok {
		info = Info{
			IsAuthenticated: true,
			UID:             u.ID,
			Name:            u.Name,
			Email:           u.Email,
			Role:            u.Role,
			IsSuperAdmin:    u.IsSuperAdmin,
			Home:            viewstate.HomePath(viewstate.DashboardFor(u.Role)),
		}
	}
	_ = json.NewEncoder(w).Encode(info)
}
