package viewstate_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/app/system/viewstate"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		target string
		user   *auth.SessionUser
		want   viewstate.State
	}{
		{"landing", "/", nil, viewstate.AnonymousInitial},
		{"chooser", "/?step=choose", nil, viewstate.AnonymousChoosing},
		{"unknown step", "/?step=other", nil, viewstate.AnonymousInitial},
		{"signed in ignores step", "/?step=choose", &auth.SessionUser{ID: "google:1"}, viewstate.Authenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.user != nil {
				r = auth.WithTestUser(r, tt.user)
			}
			if got := viewstate.Resolve(r); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDashboardFor(t *testing.T) {
	tests := map[string]viewstate.Dashboard{
		"admin": viewstate.DashboardAdmin,
		"user":  viewstate.DashboardUser,
		"":      viewstate.DashboardNone,
		"guest": viewstate.DashboardNone,
	}
	for role, want := range tests {
		if got := viewstate.DashboardFor(role); got != want {
			t.Errorf("DashboardFor(%q) = %q, want %q", role, got, want)
		}
	}
}

func TestHomePath(t *testing.T) {
	if viewstate.HomePath(viewstate.DashboardAdmin) != "/admin/feed" {
		t.Error("admin home")
	}
	if viewstate.HomePath(viewstate.DashboardUser) != "/tasks" {
		t.Error("user home")
	}
	if viewstate.HomePath(viewstate.DashboardNone) != "/" {
		t.Error("none home")
	}
}
