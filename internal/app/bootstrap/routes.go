// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/playtweet/internal/app/features/errors"
	healthfeature "github.com/dalemusser/playtweet/internal/app/features/health"
	loginfeature "github.com/dalemusser/playtweet/internal/app/features/login"
	logoutfeature "github.com/dalemusser/playtweet/internal/app/features/logout"
	profilefeature "github.com/dalemusser/playtweet/internal/app/features/profile"
	refreshtokenfeature "github.com/dalemusser/playtweet/internal/app/features/refreshtoken"
	registerfeature "github.com/dalemusser/playtweet/internal/app/features/register"
	"github.com/dalemusser/playtweet/internal/app/services/accounts"
	auditstore "github.com/dalemusser/playtweet/internal/app/store/audit"
	"github.com/dalemusser/playtweet/internal/app/store/ratelimit"
	userstore "github.com/dalemusser/playtweet/internal/app/store/users"
	"github.com/dalemusser/playtweet/internal/app/system/apicors"
	"github.com/dalemusser/playtweet/internal/app/system/auditlog"
	"github.com/dalemusser/playtweet/internal/app/system/auth"
	"github.com/dalemusser/playtweet/internal/app/system/metrics"
	"github.com/dalemusser/playtweet/internal/app/system/network"
	"github.com/dalemusser/playtweet/internal/app/system/tokens"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// requestTimeout bounds every request, including asset uploads.
const requestTimeout = 30 * time.Second

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The account routes are mounted under
// appCfg.APIPrefix; probes, /metrics and local asset files live at the root.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	issuer, err := tokens.New(appCfg.tokenConfig())
	if err != nil {
		logger.Error("token issuer init failed", zap.Error(err))
		return nil, err
	}
	logger.Info("token issuer ready",
		zap.Duration("access_expiry", issuer.AccessExpiry()),
		zap.Duration("refresh_expiry", issuer.RefreshExpiry()))

	sameSite, err := auth.ParseSameSite(appCfg.CookieSameSite)
	if err != nil {
		return nil, err
	}
	cookies := auth.CookieConfig{SameSite: sameSite, Domain: appCfg.CookieDomain}

	uploader, err := newUploader(appCfg, deps, logger)
	if err != nil {
		logger.Error("uploader init failed", zap.Error(err))
		return nil, err
	}

	users := userstore.New(deps.MongoDatabase)

	auditLogger := auditlog.New(auditstore.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:    appCfg.AuditLogAuth,
		Account: appCfg.AuditLogAccount,
	})

	svc := accounts.New(accounts.Deps{
		Users:   users,
		Uploads: uploader,
		Tokens:  issuer,
		Limiter: newLimiter(appCfg, deps, logger),
		Audit:   auditLogger,
		Logger:  logger,
	}, accounts.Config{DefaultCoverURL: appCfg.DefaultCoverURL})

	verifier := auth.NewVerifier(issuer, users, logger)
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(network.Middleware)
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))
	r.Use(apicors.Middleware(appCfg.CORSOrigins))

	// Health and probes
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	r.Handle("/metrics", metrics.Handler())

	// /static/* serves bundled files such as the default cover.
	r.Handle("/static/*", fileserver.Handler("/static", "static"))

	// Serve locally stored avatars and covers.
	if appCfg.StorageType == "local" || appCfg.StorageType == "" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	r.Route(appCfg.APIPrefix, func(api chi.Router) {
		api.Mount("/register", registerfeature.Routes(registerfeature.NewHandler(svc, uploader, errLog)))
		api.Mount("/login", loginfeature.Routes(loginfeature.NewHandler(svc, cookies, errLog)))
		api.Mount("/logout", logoutfeature.Routes(logoutfeature.NewHandler(svc, cookies, errLog), verifier))
		api.Mount("/refresh-token", refreshtokenfeature.Routes(refreshtokenfeature.NewHandler(svc, cookies, errLog)))
		profilefeature.MountRoutes(api, profilefeature.NewHandler(svc, uploader, errLog), verifier)
	})

	errHandler := errorsfeature.NewHandler()
	r.NotFound(errHandler.NotFound)
	r.MethodNotAllowed(errHandler.MethodNotAllowed)

	logger.Info("routes mounted",
		zap.String("api_prefix", appCfg.APIPrefix),
		zap.Strings("cors_origins", appCfg.CORSOrigins))

	return r, nil
}

// newLimiter returns the login limiter for the configured backend, or nil
// when rate limiting is disabled.
func newLimiter(appCfg AppConfig, deps DBDeps, logger *zap.Logger) accounts.Limiter {
	if !appCfg.RateLimitEnabled {
		logger.Warn("login rate limiting is disabled")
		return nil
	}
	policy := appCfg.rateLimitPolicy()
	if appCfg.RateLimitBackend == "redis" && deps.Redis != nil {
		return ratelimit.NewRedis(deps.Redis, "playtweet:login", policy)
	}
	return ratelimit.New(deps.MongoDatabase, policy)
}
