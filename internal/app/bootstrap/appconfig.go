// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - Request body size limits
//   - Database connection timeouts
//
// AppConfig carries everything specific to the account service: the
// MongoDB connection, token secrets, cookie and CORS policy, asset storage,
// login rate limiting, and audit logging.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Token configuration
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration // default: 1d
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration // default: 10d

	// HTTP surface
	APIPrefix      string   // mount point for account routes (default: /api/v1/users)
	CORSOrigins    []string // allowed browser origins; credentials are allowed
	CookieSameSite string   // lax, strict or none
	CookieDomain   string   // blank means current host

	// File storage configuration
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage path (e.g., "./uploads")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/files")

	// S3/CloudFront configuration (only used if StorageType is "s3")
	StorageS3Region    string // AWS region
	StorageS3Bucket    string // S3 bucket name
	StorageS3Prefix    string // Key prefix (e.g., "uploads/")
	StorageCFURL       string // CloudFront distribution URL
	StorageCFKeyPairID string // CloudFront key pair ID
	StorageCFKeyPath   string // Path to CloudFront private key file

	// Uploads
	UploadFolder    string // top-level folder for avatars and covers (default: PlayTweet)
	UploadTempDir   string // staging directory for multipart files
	UploadMaxBytes  int64  // per-file limit
	DefaultCoverURL string // cover image used when none is uploaded

	// Rate limiting configuration
	RateLimitEnabled       bool          // Enable rate limiting for login attempts (default: true)
	RateLimitBackend       string        // "mongo" or "redis"
	RedisURL               string        // redis://host:port/db, used when the backend is redis
	RateLimitLoginAttempts int           // Max failed login attempts before lockout (default: 5)
	RateLimitLoginWindow   time.Duration // Time window for counting failed attempts (default: 15m)
	RateLimitLoginLockout  time.Duration // Lockout duration after exceeding limit (default: 15m)

	// Audit logging configuration
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	AuditLogAuth    string        // Login, logout, token and password events
	AuditLogAccount string        // Registration and profile events
	AuditRetention  time.Duration // events older than this are pruned (0 keeps everything)

	// Backend call deadlines (see system/timeouts)
	TimeoutPing   time.Duration
	TimeoutUpload time.Duration
	TimeoutBatch  time.Duration
}
