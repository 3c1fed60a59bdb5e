// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"
	"time"

	activityfeature "github.com/dalemusser/stratafolio/internal/app/features/activity"
	adminusersfeature "github.com/dalemusser/stratafolio/internal/app/features/adminusers"
	errorsfeature "github.com/dalemusser/stratafolio/internal/app/features/errors"
	healthfeature "github.com/dalemusser/stratafolio/internal/app/features/health"
	homefeature "github.com/dalemusser/stratafolio/internal/app/features/home"
	loginfeature "github.com/dalemusser/stratafolio/internal/app/features/login"
	logoutfeature "github.com/dalemusser/stratafolio/internal/app/features/logout"
	mapapifeature "github.com/dalemusser/stratafolio/internal/app/features/mapapi"
	mapviewfeature "github.com/dalemusser/stratafolio/internal/app/features/mapview"
	profilefeature "github.com/dalemusser/stratafolio/internal/app/features/profile"
	profileapifeature "github.com/dalemusser/stratafolio/internal/app/features/profileapi"
	usersapifeature "github.com/dalemusser/stratafolio/internal/app/features/usersapi"
	appresources "github.com/dalemusser/stratafolio/internal/app/resources"
	"github.com/dalemusser/stratafolio/internal/app/store/activitylog"
	"github.com/dalemusser/stratafolio/internal/app/store/profiles"
	userstore "github.com/dalemusser/stratafolio/internal/app/store/users"
	"github.com/dalemusser/stratafolio/internal/app/system/accountevents"
	"github.com/dalemusser/stratafolio/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// Web UI routes get session auth plus CSRF. The JSON API routes under
// /api and /map/api share the same session auth but skip CSRF; they
// return 403 JSON bodies instead of redirecting to /login.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Set up the UserFetcher so LoadSessionUser fetches fresh user data on each request.
	// This ensures role changes, disabled accounts, and profile updates take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase, logger))

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	// Account event hooks keep profiles in step with user writes and
	// record sign-in traffic in the activity log.
	events := accountevents.New(
		profiles.New(deps.MongoDatabase),
		activitylog.New(deps.MongoDatabase),
		logger,
		accountevents.Config{Activity: appCfg.ActivityLog},
	)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Session middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// CSRF protection middleware with path-based exemption for API routes.
	// Cookie name is "stratafolio_csrf" to avoid collisions with other
	// services on the same domain.
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("stratafolio_csrf"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			if req.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/login")
				w.WriteHeader(http.StatusForbidden)
				return
			}
			http.Error(w, "CSRF token invalid or missing", http.StatusForbidden)
		})),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	trustedOrigins := []string{
		"localhost:8080",
		"localhost:3000",
		"127.0.0.1:8080",
		"127.0.0.1:3000",
	}
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins(trustedOrigins))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	csrfProtect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)

	// Wrap CSRF middleware to skip for the JSON API routes. Those are
	// driven by script clients and return JSON errors, not login redirects.
	csrfMiddleware := func(next http.Handler) http.Handler {
		csrfHandler := csrfProtect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			path := req.URL.Path
			if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/map/api/") {
				next.ServeHTTP(w, req)
				return
			}
			csrfHandler.ServeHTTP(w, req)
		})
	}
	r.Use(csrfMiddleware)

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────────

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Static assets with pre-compressed file support (gzip/brotli)
	// /static/* serves files from disk (static directory)
	r.Handle("/static/*", fileserver.Handler("/static", "static"))

	// /assets/* serves embedded assets (bundled into the binary)
	r.Handle("/assets/*", appresources.AssetsHandler("/assets"))

	// Public pages
	homeHandler := homefeature.NewHandler(deps.MongoDatabase, logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(deps.MongoDatabase, sessionMgr, errLog, events, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, events, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Profile pages (own profile, edit, and superuser views of others)
	profileHandler := profilefeature.NewHandler(deps.MongoDatabase, errLog, events, logger)
	r.Route("/profile", func(sr chi.Router) {
		sr.Use(sessionMgr.RequireSignedIn)
		sr.Mount("/", profilefeature.Routes(profileHandler))
	})

	// Member map page plus its GeoJSON data endpoint
	mapviewHandler := mapviewfeature.NewHandler(deps.MongoDatabase, logger)
	mapapiHandler := mapapifeature.NewHandler(deps.MongoDatabase, errLog, logger)
	r.Route("/map", func(sr chi.Router) {
		sr.Mount("/api", mapapifeature.Routes(mapapiHandler))
		sr.Group(func(gr chi.Router) {
			gr.Use(sessionMgr.RequireSignedIn)
			gr.Mount("/", mapviewfeature.Routes(mapviewHandler))
		})
	})

	// JSON API
	profileapiHandler := profileapifeature.NewHandler(deps.MongoDatabase, errLog, events, logger)
	r.Mount("/api/profiles", profileapifeature.Routes(profileapiHandler))

	usersapiHandler := usersapifeature.NewHandler(deps.MongoDatabase, errLog, logger)
	r.Mount("/api/users", usersapifeature.Routes(usersapiHandler))

	// Admin console
	adminusersHandler := adminusersfeature.NewHandler(deps.MongoDatabase, errLog, events, logger)
	r.Mount("/admin/users", adminusersfeature.Routes(adminusersHandler, sessionMgr))

	activityHandler := activityfeature.NewHandler(deps.MongoDatabase, errLog, logger)
	r.Mount("/admin/activity", activityfeature.Routes(activityHandler, sessionMgr))

	// 404 catch-all for unmatched routes
	r.NotFound(errorsHandler.NotFound)

	return r, nil
}
