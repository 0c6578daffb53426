// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/tasktracker/internal/app/system/identity"
	"github.com/dalemusser/tasktracker/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const (
	devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"
	devCSRFKey    = "dev-only-csrf-key-change-me-0123"
)

// appConfigKeys defines the configuration keys for the task tracker.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: TASKTRACKER_MONGO_URI, TASKTRACKER_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "task_tracker", Desc: "MongoDB database name"},
	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "tasktracker-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 24h, 720h)"},
	{Name: "csrf_key", Default: devCSRFKey, Desc: "CSRF token key, exactly 32 bytes"},

	// Base URL for OAuth redirects and QR codes
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL of the site"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Microsoft OAuth configuration
	{Name: "microsoft_client_id", Default: "", Desc: "Microsoft Entra ID application (client) ID"},
	{Name: "microsoft_client_secret", Default: "", Desc: "Microsoft Entra ID client secret"},
	{Name: "microsoft_tenant", Default: "organizations", Desc: "Microsoft tenant id (organizations/common are accepted in dev only)"},

	// Authorization
	{Name: "super_admin_emails", Default: "", Desc: "Comma-separated emails that are always admin and may change roles"},

	// Analytics
	{Name: "report_timezone", Default: "UTC", Desc: "IANA time zone analytics dates are interpreted in"},
	{Name: "analytics_max_rows", Default: 50000, Desc: "Maximum submissions read by one analytics query"},

	// Reverse proxies allowed to set X-Forwarded-For
	{Name: "trusted_proxies", Default: "", Desc: "Comma-separated proxy IPs/CIDRs whose forwarding headers are trusted"},

	// Live catalog fan-out across instances
	{Name: "redis_url", Default: "", Desc: "Redis URL for catalog change notifications (blank disables)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, TASKTRACKER_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TASKTRACKER", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),
		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 30*24*time.Hour),
		CSRFKey:       appValues.String("csrf_key"),

		BaseURL: strings.TrimRight(appValues.String("base_url"), "/"),

		// Google OAuth
		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		// Microsoft OAuth
		MicrosoftClientID:     appValues.String("microsoft_client_id"),
		MicrosoftClientSecret: appValues.String("microsoft_client_secret"),
		MicrosoftTenant:       appValues.String("microsoft_tenant"),

		SuperAdminEmails: appValues.String("super_admin_emails"),

		ReportTimezone:   appValues.String("report_timezone"),
		AnalyticsMaxRows: appValues.Int("analytics_max_rows"),

		TrustedProxies: appValues.String("trusted_proxies"),

		RedisURL: appValues.String("redis_url"),
	}

	if appCfg.MicrosoftTenant == "" {
		appCfg.MicrosoftTenant = "organizations"
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Outside dev at least one identity provider must be configured and the
// built-in dev secrets are refused.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if _, err := time.LoadLocation(appCfg.ReportTimezone); err != nil {
		return fmt.Errorf("invalid report_timezone %q: %w", appCfg.ReportTimezone, err)
	}

	if len(appCfg.CSRFKey) != 32 {
		return fmt.Errorf("csrf_key must be exactly 32 bytes, got %d", len(appCfg.CSRFKey))
	}

	u, err := url.Parse(appCfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL, got %q", appCfg.BaseURL)
	}

	if _, err := ratelimit.ParseProxies(appCfg.TrustedProxies); err != nil {
		return fmt.Errorf("invalid trusted_proxies: %w", err)
	}

	if appCfg.AnalyticsMaxRows < 0 {
		return errors.New("analytics_max_rows must not be negative")
	}

	if coreCfg != nil && coreCfg.Env != "dev" {
		if !appCfg.GoogleEnabled() && !appCfg.MicrosoftEnabled() {
			return errors.New("no identity provider configured: set google_client_id/secret or microsoft_client_id/secret")
		}
		if appCfg.SessionKey == devSessionKey {
			return errors.New("session_key must be changed outside dev")
		}
		if appCfg.CSRFKey == devCSRFKey {
			return errors.New("csrf_key must be changed outside dev")
		}
		if appCfg.MicrosoftEnabled() && identity.IsMultiTenant(appCfg.MicrosoftTenant) {
			return fmt.Errorf("microsoft_tenant must be a tenant id outside dev, got %q", appCfg.MicrosoftTenant)
		}
	}

	if appCfg.MicrosoftEnabled() && identity.IsMultiTenant(appCfg.MicrosoftTenant) {
		logger.Warn("microsoft sign-in uses a shared tenant endpoint; microsoft emails are ignored",
			zap.String("tenant", appCfg.MicrosoftTenant))
	}

	if !appCfg.GoogleEnabled() && !appCfg.MicrosoftEnabled() {
		logger.Warn("no identity provider configured; sign-in is unavailable")
	}

	return nil
}
