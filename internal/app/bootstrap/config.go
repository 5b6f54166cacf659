// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/playtweet/internal/app/store/ratelimit"
	"github.com/dalemusser/playtweet/internal/app/system/apicors"
	"github.com/dalemusser/playtweet/internal/app/system/auditlog"
	"github.com/dalemusser/playtweet/internal/app/system/auth"
	"github.com/dalemusser/playtweet/internal/app/system/timeouts"
	"github.com/dalemusser/playtweet/internal/app/system/tokens"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "PLAYTWEET"

// DefaultCoverURL is the bundled placeholder cover, served from ./static.
const DefaultCoverURL = "/static/default-cover.png"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, access_token_secret, etc.
//   - Environment variables: PLAYTWEET_MONGO_URI, PLAYTWEET_ACCESS_TOKEN_SECRET, etc.
//   - Command-line flags: --mongo_uri, --access_token_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "playtweet", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Tokens
	{Name: "access_token_secret", Default: "", Desc: "HMAC secret for access tokens (required)"},
	{Name: "access_token_expiry", Default: "1d", Desc: "Access token lifetime (e.g., 15m, 1h, 1d)"},
	{Name: "refresh_token_secret", Default: "", Desc: "HMAC secret for refresh tokens (required, must differ from the access secret)"},
	{Name: "refresh_token_expiry", Default: "10d", Desc: "Refresh token lifetime (e.g., 24h, 10d)"},

	// HTTP surface
	{Name: "api_prefix", Default: "/api/v1/users", Desc: "Mount point for the account routes"},
	{Name: "cors_origins", Default: "", Desc: "Comma-separated browser origins allowed to call the API with credentials"},
	{Name: "cookie_same_site", Default: "lax", Desc: "SameSite policy for token cookies: 'lax', 'strict' or 'none'"},
	{Name: "cookie_domain", Default: "", Desc: "Token cookie domain (blank means current host)"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},

	// S3/CloudFront configuration
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "uploads/", Desc: "S3 key prefix"},
	{Name: "storage_cf_url", Default: "", Desc: "CloudFront distribution URL"},
	{Name: "storage_cf_keypair_id", Default: "", Desc: "CloudFront key pair ID"},
	{Name: "storage_cf_key_path", Default: "", Desc: "Path to CloudFront private key file"},

	// Uploads
	{Name: "upload_folder", Default: "PlayTweet", Desc: "Top-level storage folder for profile images"},
	{Name: "upload_temp_dir", Default: "./public/temp", Desc: "Directory multipart files are staged in"},
	{Name: "upload_max_bytes", Default: 5 << 20, Desc: "Maximum size of a single uploaded image in bytes"},
	{Name: "default_cover_url", Default: DefaultCoverURL, Desc: "Cover image URL used when registration has no cover"},

	// Rate limiting configuration
	{Name: "rate_limit_enabled", Default: true, Desc: "Enable rate limiting for login attempts"},
	{Name: "rate_limit_backend", Default: "mongo", Desc: "Rate limit backend: 'mongo' or 'redis'"},
	{Name: "redis_url", Default: "redis://localhost:6379/0", Desc: "Redis URL for the redis rate limit backend"},
	{Name: "rate_limit_login_attempts", Default: 5, Desc: "Max failed login attempts before lockout"},
	{Name: "rate_limit_login_window", Default: "15m", Desc: "Time window for counting failed attempts"},
	{Name: "rate_limit_login_lockout", Default: "15m", Desc: "Lockout duration after exceeding limit"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_account", Default: "all", Desc: "Account event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_retention", Default: "2160h", Desc: "Prune audit events older than this (0 keeps everything)"},

	// Backend call deadlines
	{Name: "timeout_ping", Default: "2s", Desc: "Deadline for health check pings"},
	{Name: "timeout_upload", Default: "20s", Desc: "Deadline for writing one image to storage"},
	{Name: "timeout_batch", Default: "60s", Desc: "Deadline for one run of a maintenance job"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, PLAYTWEET_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
//
// Token lifetimes accept day suffixes ("10d"), so they are parsed here with
// tokens.ParseExpiry. An unparseable value is left at zero and rejected by
// ValidateConfig.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		// Tokens
		AccessTokenSecret:  appValues.String("access_token_secret"),
		AccessTokenExpiry:  parseExpiry(logger, "access_token_expiry", appValues.String("access_token_expiry")),
		RefreshTokenSecret: appValues.String("refresh_token_secret"),
		RefreshTokenExpiry: parseExpiry(logger, "refresh_token_expiry", appValues.String("refresh_token_expiry")),

		// HTTP surface
		APIPrefix:      normalizePrefix(appValues.String("api_prefix")),
		CORSOrigins:    apicors.ParseOrigins(appValues.String("cors_origins")),
		CookieSameSite: appValues.String("cookie_same_site"),
		CookieDomain:   appValues.String("cookie_domain"),

		// File storage
		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),

		// S3/CloudFront
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Prefix:    appValues.String("storage_s3_prefix"),
		StorageCFURL:       appValues.String("storage_cf_url"),
		StorageCFKeyPairID: appValues.String("storage_cf_keypair_id"),
		StorageCFKeyPath:   appValues.String("storage_cf_key_path"),

		// Uploads
		UploadFolder:    appValues.String("upload_folder"),
		UploadTempDir:   appValues.String("upload_temp_dir"),
		UploadMaxBytes:  int64(appValues.Int("upload_max_bytes")),
		DefaultCoverURL: appValues.String("default_cover_url"),

		// Rate limiting
		RateLimitEnabled:       appValues.Bool("rate_limit_enabled"),
		RateLimitBackend:       strings.ToLower(appValues.String("rate_limit_backend")),
		RedisURL:               appValues.String("redis_url"),
		RateLimitLoginAttempts: appValues.Int("rate_limit_login_attempts"),
		RateLimitLoginWindow:   appValues.Duration("rate_limit_login_window", 15*time.Minute),
		RateLimitLoginLockout:  appValues.Duration("rate_limit_login_lockout", 15*time.Minute),

		// Audit logging
		AuditLogAuth:    appValues.String("audit_log_auth"),
		AuditLogAccount: appValues.String("audit_log_account"),
		AuditRetention:  appValues.Duration("audit_retention", 90*24*time.Hour),

		// Deadlines
		TimeoutPing:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
		TimeoutUpload: appValues.Duration("timeout_upload", timeouts.DefaultUpload),
		TimeoutBatch:  appValues.Duration("timeout_batch", timeouts.DefaultBatch),
	}

	return coreCfg, appCfg, nil
}

func parseExpiry(logger *zap.Logger, key, value string) time.Duration {
	d, err := tokens.ParseExpiry(value)
	if err != nil {
		logger.Warn("invalid token expiry", zap.String("key", key), zap.Error(err))
		return 0
	}
	return d
}

// normalizePrefix ensures a leading slash and no trailing slash. An empty
// prefix mounts the account routes at the root.
func normalizePrefix(p string) string {
	return "/" + strings.Trim(strings.TrimSpace(p), "/")
}

// tokenConfig assembles the token issuer configuration.
func (c AppConfig) tokenConfig() tokens.Config {
	return tokens.Config{
		AccessSecret:  c.AccessTokenSecret,
		AccessExpiry:  c.AccessTokenExpiry,
		RefreshSecret: c.RefreshTokenSecret,
		RefreshExpiry: c.RefreshTokenExpiry,
	}
}

// rateLimitPolicy assembles the login lockout policy.
func (c AppConfig) rateLimitPolicy() ratelimit.Policy {
	return ratelimit.Policy{
		MaxAttempts: c.RateLimitLoginAttempts,
		Window:      c.RateLimitLoginWindow,
		Lockout:     c.RateLimitLoginLockout,
	}
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if _, err := tokens.New(appCfg.tokenConfig()); err != nil {
		logger.Error("invalid token configuration", zap.Error(err))
		return fmt.Errorf("invalid token configuration: %w", err)
	}

	if _, err := auth.ParseSameSite(appCfg.CookieSameSite); err != nil {
		return err
	}

	if strings.TrimSpace(appCfg.DefaultCoverURL) == "" {
		return fmt.Errorf("default_cover_url is required")
	}

	switch appCfg.StorageType {
	case "local", "", "s3":
	default:
		return fmt.Errorf("unknown storage type: %s", appCfg.StorageType)
	}

	if appCfg.RateLimitEnabled {
		switch appCfg.RateLimitBackend {
		case "mongo", "redis":
		default:
			return fmt.Errorf("unknown rate limit backend: %s", appCfg.RateLimitBackend)
		}
		if err := appCfg.rateLimitPolicy().Validate(); err != nil {
			return fmt.Errorf("invalid rate limit policy: %w", err)
		}
	}

	for key, mode := range map[string]string{
		"audit_log_auth":    appCfg.AuditLogAuth,
		"audit_log_account": appCfg.AuditLogAccount,
	} {
		if !auditlog.ValidMode(mode) {
			return fmt.Errorf("invalid %s value %q (expected all, db, log or off)", key, mode)
		}
	}

	if len(appCfg.CORSOrigins) == 0 {
		logger.Warn("cors_origins is empty; browsers on other origins cannot call the API")
	}

	return nil
}
