package viewdata_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/app/system/viewdata"
	"github.com/dalemusser/tasktracker/internal/app/system/viewstate"
)

func TestNewBaseVM_Anonymous(t *testing.T) {
	vm := viewdata.NewBaseVM(httptest.NewRequest("GET", "/", nil), "Welcome")
	if vm.IsLoggedIn || vm.Role != "" || vm.IsAdmin() {
		t.Errorf("anonymous vm = %+v", vm)
	}
	if vm.Title != "Welcome" || vm.SiteName != viewdata.SiteName {
		t.Errorf("title/site = %q/%q", vm.Title, vm.SiteName)
	}
	if vm.Dashboard != viewstate.DashboardNone {
		t.Errorf("dashboard = %q", vm.Dashboard)
	}
}

func TestNewBaseVM_SignedIn(t *testing.T) {
	req := httptest.NewRequest("GET", "/admin/feed", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{
		ID: "microsoft:1", Name: "Grace", Email: "g@example.com", Role: "admin", IsSuperAdmin: true,
	})
	vm := viewdata.NewBaseVM(req, "Feed")

	if !vm.IsLoggedIn || vm.UserName != "Grace" || vm.UserEmail != "g@example.com" {
		t.Errorf("vm = %+v", vm)
	}
	if !vm.IsAdmin() || !vm.IsSuperAdmin {
		t.Error("expected an admin super-admin view")
	}
}
