// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	analyticsfeature "github.com/dalemusser/tasktracker/internal/app/features/analytics"
	catalogfeature "github.com/dalemusser/tasktracker/internal/app/features/catalog"
	errorsfeature "github.com/dalemusser/tasktracker/internal/app/features/errors"
	feedfeature "github.com/dalemusser/tasktracker/internal/app/features/feed"
	healthfeature "github.com/dalemusser/tasktracker/internal/app/features/health"
	historyfeature "github.com/dalemusser/tasktracker/internal/app/features/history"
	homefeature "github.com/dalemusser/tasktracker/internal/app/features/home"
	loginfeature "github.com/dalemusser/tasktracker/internal/app/features/login"
	logoutfeature "github.com/dalemusser/tasktracker/internal/app/features/logout"
	rosterfeature "github.com/dalemusser/tasktracker/internal/app/features/roster"
	submitfeature "github.com/dalemusser/tasktracker/internal/app/features/submit"
	userinfofeature "github.com/dalemusser/tasktracker/internal/app/features/userinfo"
	userstore "github.com/dalemusser/tasktracker/internal/app/store/users"
	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/app/system/identity"
	"github.com/dalemusser/tasktracker/internal/app/system/ratelimit"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// signInRequestsPerMinute caps /login and /auth requests per client IP.
const signInRequestsPerMinute = 30

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// It initializes the template engine, applies CSRF and session
// middleware, and mounts the feature routers: sign-in, the user task
// pages, the admin area, and the live catalog stream.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// The profile is re-read on every request, so role changes take effect
	// on the next page load.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase, deps.Policy, logger))

	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	r := chi.NewRouter()

	if !secure {
		r.Use(plaintextCSRF)
	}
	r.Use(csrf.Protect([]byte(appCfg.CSRFKey),
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure(logger))),
	))

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.CatalogHub, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Landing page, sign-in chooser and role router
	homeHandler := homefeature.NewHandler(appCfg.BaseURL, logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(deps.MongoDatabase, sessionMgr, deps.Policy, identityProviders(appCfg, logger), logger)
	proxies, err := ratelimit.ParseProxies(appCfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	signInLimiter := ratelimit.New(signInRequestsPerMinute, time.Minute)
	r.Group(func(r chi.Router) {
		r.Use(ratelimit.PerIP(signInLimiter, proxies, logger))
		r.Mount("/login", loginfeature.Routes(loginHandler))
		r.Mount("/auth", loginfeature.CallbackRoutes(loginHandler))
	})

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Session check for client-side code
	userinfofeature.MountRoutes(r, userinfofeature.NewHandler())

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// User dashboard
	submitHandler := submitfeature.NewHandler(deps.MongoDatabase, logger)
	r.Mount("/tasks", submitfeature.Routes(submitHandler, sessionMgr))

	historyHandler := historyfeature.NewHandler(deps.MongoDatabase, deps.Location, logger)
	r.Mount("/tasks/history", historyfeature.Routes(historyHandler, sessionMgr))

	// Admin dashboard
	r.With(sessionMgr.RequireRole(models.RoleAdmin)).Get("/admin", feedfeature.RedirectToFeed)

	feedHandler := feedfeature.NewHandler(deps.MongoDatabase, deps.Location, logger)
	r.Mount("/admin/feed", feedfeature.Routes(feedHandler, sessionMgr))

	rosterHandler := rosterfeature.NewHandler(deps.MongoDatabase, deps.Policy, logger)
	r.Mount("/admin/users", rosterfeature.Routes(rosterHandler, sessionMgr))

	analyticsHandler := analyticsfeature.NewHandler(deps.MongoDatabase, deps.Location, appCfg.AnalyticsMaxRows, logger)
	r.Mount("/admin/analytics", analyticsfeature.Routes(analyticsHandler, sessionMgr))

	catalogHandler := catalogfeature.NewHandler(deps.MongoDatabase, deps.CatalogHub, logger)
	r.Mount("/admin/catalog", catalogfeature.Routes(catalogHandler, sessionMgr))
	r.Mount("/catalog", catalogfeature.StreamRoutes(catalogHandler, sessionMgr))

	return r, nil
}

// identityProviders builds the configured sign-in providers.
func identityProviders(appCfg AppConfig, logger *zap.Logger) []identity.Provider {
	var out []identity.Provider
	if appCfg.GoogleEnabled() {
		out = append(out, identity.NewGoogle(
			appCfg.GoogleClientID,
			appCfg.GoogleClientSecret,
			appCfg.BaseURL+"/auth/google/callback"))
	}
	if appCfg.MicrosoftEnabled() {
		out = append(out, identity.NewMicrosoft(
			appCfg.MicrosoftClientID,
			appCfg.MicrosoftClientSecret,
			appCfg.MicrosoftTenant,
			appCfg.BaseURL+"/auth/microsoft/callback"))
	}
	names := make([]string, 0, len(out))
	for _, p := range out {
		names = append(names, p.Name())
	}
	logger.Info("identity providers configured", zap.Strings("providers", names))
	return out
}

// plaintextCSRF marks requests as plain HTTP so the CSRF referer check
// accepts http:// origins outside production.
func plaintextCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func csrfFailure(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Warn("csrf validation failed",
			zap.String("path", r.URL.Path),
			zap.Error(csrf.FailureReason(r)))
		http.Error(w, "forbidden - invalid or missing CSRF token", http.StatusForbidden)
	}
}
