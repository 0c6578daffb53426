package logout_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/tasktracker/internal/app/features/logout"
	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/testutil"
	"go.uber.org/zap"
)

func newSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return sm
}

func TestServeLogout_RedirectsToHome(t *testing.T) {
	handler := logout.NewHandler(newSessionManager(t), zap.NewNop())

	req := testutil.NewAuthenticatedRequest("POST", "/logout", testutil.RegularUser())
	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location: got %q, want %q", loc, "/")
	}
}

func TestServeLogout_HTMX_ReturnsHXRedirect(t *testing.T) {
	handler := logout.NewHandler(newSessionManager(t), zap.NewNop())

	req := httptest.NewRequest("POST", "/logout", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, req)

	if hx := rec.Header().Get("HX-Redirect"); hx != "/" {
		t.Errorf("HX-Redirect: got %q, want %q", hx, "/")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d for HTMX, got %d", http.StatusOK, rec.Code)
	}
}

func TestServeLogout_EndsSession(t *testing.T) {
	sm := newSessionManager(t)
	handler := logout.NewHandler(sm, zap.NewNop())

	// Sign in first and carry the cookie into the logout request.
	rec1 := httptest.NewRecorder()
	id := auth.Identity{UID: "google:1", Email: "a@example.com", Name: "A", Provider: "google"}
	if err := sm.SignIn(rec1, httptest.NewRequest("GET", "/auth/google/callback", nil), id); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	req := httptest.NewRequest("POST", "/logout", nil)
	for _, c := range rec1.Result().Cookies() {
		req.AddCookie(c)
	}
	rec2 := httptest.NewRecorder()
	handler.ServeLogout(rec2, req)

	var found bool
	for _, c := range rec2.Result().Cookies() {
		if c.Name == "test-session" {
			found = true
			if c.MaxAge != -1 {
				t.Errorf("cookie MaxAge after logout: got %d, want -1", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be set for deletion")
	}

	// The expired cookie no longer resolves to a user.
	var signedIn bool
	load := sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, signedIn = auth.CurrentUser(r)
	}))
	req3 := httptest.NewRequest("GET", "/", nil)
	for _, c := range rec2.Result().Cookies() {
		if c.MaxAge >= 0 {
			req3.AddCookie(c)
		}
	}
	load.ServeHTTP(httptest.NewRecorder(), req3)
	if signedIn {
		t.Error("user still signed in after logout")
	}
}

func TestRoutes_OnlyPost(t *testing.T) {
	r := logout.Routes(logout.NewHandler(newSessionManager(t), zap.NewNop()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /logout: status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
