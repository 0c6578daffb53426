// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (TASKTRACKER_*),
// configuration files, or command-line flags (loaded in LoadConfig).
// WAFFLE's CoreConfig covers the framework-level settings: ports, TLS,
// logging, CORS and body limits.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI      string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase string // Database name within MongoDB

	// Session management configuration
	SessionKey    string        // Secret the cookie signing and encryption keys are derived from
	SessionName   string        // Cookie name for sessions (default: tasktracker-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// CSRF protection for POST forms; exactly 32 bytes.
	CSRFKey string

	// Public base URL, used for OAuth redirect URLs and landing-page QR codes.
	BaseURL string

	// Google sign-in (visitors)
	GoogleClientID     string
	GoogleClientSecret string

	// Microsoft sign-in (employees)
	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftTenant       string // tenant id; "organizations" or "common" in dev only

	// Super-admin allowlist, comma-separated emails.
	SuperAdminEmails string

	// Analytics
	ReportTimezone   string // IANA zone the analytics dates are read in
	AnalyticsMaxRows int    // safety cap on one analytics query

	// Proxy IPs/CIDRs whose X-Forwarded-For is trusted by the sign-in limiter.
	TrustedProxies string

	// Optional Redis URL for cross-instance catalog change notifications.
	RedisURL string
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c AppConfig) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// MicrosoftEnabled reports whether Microsoft sign-in is configured.
func (c AppConfig) MicrosoftEnabled() bool {
	return c.MicrosoftClientID != "" && c.MicrosoftClientSecret != ""
}
