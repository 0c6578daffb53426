package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	catalogstore "github.com/dalemusser/tasktracker/internal/app/store/catalog"
	"github.com/dalemusser/tasktracker/internal/app/resources"
	"github.com/dalemusser/tasktracker/internal/app/system/catalogsync"
	"github.com/dalemusser/tasktracker/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "task_tracker",
		SessionKey:         "prod-session-key-0123456789abcdefghijkl",
		CSRFKey:            "prod-csrf-key-0123456789abcdefgh",
		BaseURL:            "https://tasks.example.com",
		GoogleClientID:     "gid",
		GoogleClientSecret: "gsecret",
		ReportTimezone:     "America/Chicago",
		AnalyticsMaxRows:   1000,
	}
}

func withMicrosoft(tenant string) func(c *AppConfig) {
	return func(c *AppConfig) {
		c.MicrosoftClientID = "mid"
		c.MicrosoftClientSecret = "msecret"
		c.MicrosoftTenant = tenant
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(c *AppConfig)
		wantErr bool
	}{
		{"valid prod", "prod", func(c *AppConfig) {}, false},
		{"bad mongo uri", "prod", func(c *AppConfig) { c.MongoURI = "" }, true},
		{"bad time zone", "prod", func(c *AppConfig) { c.ReportTimezone = "Mars/Olympus" }, true},
		{"short csrf key", "prod", func(c *AppConfig) { c.CSRFKey = "short" }, true},
		{"relative base url", "prod", func(c *AppConfig) { c.BaseURL = "/tasks" }, true},
		{"negative row cap", "prod", func(c *AppConfig) { c.AnalyticsMaxRows = -1 }, true},
		{"no provider in prod", "prod", func(c *AppConfig) { c.GoogleClientID = "" }, true},
		{"no provider in dev", "dev", func(c *AppConfig) { c.GoogleClientID = "" }, false},
		{"dev session key in prod", "prod", func(c *AppConfig) { c.SessionKey = devSessionKey }, true},
		{"dev csrf key in prod", "prod", func(c *AppConfig) { c.CSRFKey = devCSRFKey }, true},
		{"dev keys in dev", "dev", func(c *AppConfig) { c.SessionKey, c.CSRFKey = devSessionKey, devCSRFKey }, false},
		{"bad trusted proxy", "prod", func(c *AppConfig) { c.TrustedProxies = "10.0.0.0/8, nope" }, true},
		{"trusted proxies", "prod", func(c *AppConfig) { c.TrustedProxies = "10.0.0.0/8, 192.0.2.1" }, false},
		{"shared microsoft tenant in prod", "prod", withMicrosoft("organizations"), true},
		{"common microsoft tenant in prod", "prod", withMicrosoft("common"), true},
		{"pinned microsoft tenant in prod", "prod", withMicrosoft("0b7e8c2a-1111-4d2e-9c3f-5a6b7c8d9e0f"), false},
		{"shared microsoft tenant in dev", "dev", withMicrosoft("organizations"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIdentityProviders(t *testing.T) {
	cfg := validConfig()
	cfg.MicrosoftClientID = "mid"
	cfg.MicrosoftClientSecret = "msecret"
	cfg.MicrosoftTenant = "organizations"

	got := identityProviders(cfg, testLogger())
	if len(got) != 2 || got[0].Name() != "google" || got[1].Name() != "microsoft" {
		t.Fatalf("providers = %v", got)
	}
	if u := got[0].AuthCodeURL("s1"); !strings.Contains(u, url.QueryEscape("https://tasks.example.com/auth/google/callback")) {
		t.Errorf("google auth url %q missing callback", u)
	}

	cfg.GoogleClientSecret = ""
	if got := identityProviders(cfg, testLogger()); len(got) != 1 || got[0].Name() != "microsoft" {
		t.Errorf("providers = %v", got)
	}
}

func newTestDeps(t *testing.T) DBDeps {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return DBDeps{
		MongoClient:   db.Client(),
		MongoDatabase: db,
		CatalogHub:    catalogsync.NewHub(catalogstore.New(db).List, testLogger()),
		Policy:        testutil.NewTestPolicy(),
		Location:      time.UTC,
		bg:            &background{},
	}
}

func TestBuildHandler_Routing(t *testing.T) {
	deps := newTestDeps(t)
	resources.LoadSharedTemplates()

	cfg := validConfig()
	h, err := BuildHandler(&config.CoreConfig{Env: "test"}, cfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}

	tests := []struct {
		name     string
		method   string
		target   string
		accept   string
		want     int
		location string
	}{
		{"health", "GET", "/health", "", http.StatusOK, ""},
		{"admin feed anonymous", "GET", "/admin/feed", "text/html", http.StatusSeeOther, "/?step=choose"},
		{"admin redirect anonymous", "GET", "/admin", "text/html", http.StatusSeeOther, "/?step=choose"},
		{"tasks anonymous", "GET", "/tasks", "text/html", http.StatusSeeOther, "/?step=choose"},
		{"stream anonymous", "GET", "/catalog/stream", "text/event-stream", http.StatusUnauthorized, ""},
		{"unknown provider", "GET", "/login/yahoo", "text/html", http.StatusSeeOther, "/"},
		{"post without csrf token", "POST", "/admin/catalog", "", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.location != "" && !strings.HasPrefix(rec.Header().Get("Location"), tt.location) {
				t.Errorf("Location = %q, want prefix %q", rec.Header().Get("Location"), tt.location)
			}
		})
	}
}

func TestStartupAndShutdown(t *testing.T) {
	deps := newTestDeps(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := Startup(ctx, &config.CoreConfig{Env: "test"}, validConfig(), deps, testLogger()); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}
	if _, ok := deps.CatalogHub.Last(); !ok {
		t.Error("expected Startup to prime the catalog snapshot")
	}

	// Shutdown without a Mongo client only stops background work; the
	// shared test client stays open for other tests.
	deps.MongoClient = nil
	if err := Shutdown(ctx, &config.CoreConfig{Env: "test"}, validConfig(), deps, testLogger()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	deps.bg.stop()
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	deps := newTestDeps(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 2; i++ {
		if err := EnsureSchema(ctx, &config.CoreConfig{Env: "test"}, validConfig(), deps, testLogger()); err != nil {
			t.Fatalf("EnsureSchema run %d failed: %v", i+1, err)
		}
	}
}
