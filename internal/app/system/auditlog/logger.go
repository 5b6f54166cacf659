// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/dalemusser/playtweet/internal/app/store/audit"
	"github.com/dalemusser/playtweet/internal/app/system/metrics"
	"github.com/dalemusser/playtweet/internal/app/system/network"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination settings for a category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// ValidMode reports whether s is a recognized destination setting.
func ValidMode(s string) bool {
	switch s {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Config holds audit logging configuration.
type Config struct {
	// Auth controls login, logout, token and password events.
	Auth string
	// Account controls registration and profile events.
	Account string
}

// Store persists audit events.
type Store interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger records audit events to MongoDB and/or zap, and counts every event
// in the playtweet_auth_events_total metric regardless of destination.
type Logger struct {
	store  Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration. The client IP and user
// agent are taken from ctx (see network.Middleware) when not already set.
// A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	metrics.AuthEvents.WithLabelValues(event.EventType, metrics.Outcome(event.Success)).Inc()

	setting := ModeAll
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAccount:
		setting = l.config.Account
	}
	if setting == ModeOff {
		return
	}

	if event.IP == "" && event.UserAgent == "" {
		c := network.ClientFrom(ctx)
		event.IP, event.UserAgent = c.IP, c.UserAgent
	}

	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}
	if (setting == ModeAll || setting == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func authEvent(eventType string, userID *primitive.ObjectID, success bool, reason string, details map[string]string) audit.Event {
	return audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		Success:       success,
		FailureReason: reason,
		Details:       details,
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, userID primitive.ObjectID, identifier string) {
	l.Log(ctx, authEvent(audit.EventLoginSuccess, &userID, true, "", map[string]string{"identifier": identifier}))
}

// LoginFailedUserNotFound logs a login for an unknown username or email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, identifier string) {
	l.Log(ctx, authEvent(audit.EventLoginFailedUserNotFound, nil, false, "user not found",
		map[string]string{"identifier": identifier}))
}

// LoginFailedWrongPassword logs a login with a bad password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, userID primitive.ObjectID, identifier string) {
	l.Log(ctx, authEvent(audit.EventLoginFailedWrongPassword, &userID, false, "wrong password",
		map[string]string{"identifier": identifier}))
}

// LoginLockedOut logs the failure that locked an identifier out.
func (l *Logger) LoginLockedOut(ctx context.Context, identifier string) {
	l.Log(ctx, authEvent(audit.EventLoginLockedOut, nil, false, "too many failed attempts",
		map[string]string{"identifier": identifier}))
}

// LoginRateLimited logs a login refused because the identifier is locked.
func (l *Logger) LoginRateLimited(ctx context.Context, identifier string) {
	l.Log(ctx, authEvent(audit.EventLoginRateLimited, nil, false, "locked out",
		map[string]string{"identifier": identifier}))
}

// Logout logs a user logout.
func (l *Logger) Logout(ctx context.Context, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(audit.EventLogout, &userID, true, "", nil))
}

// TokenRefreshed logs a successful refresh-token rotation.
func (l *Logger) TokenRefreshed(ctx context.Context, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(audit.EventTokenRefreshed, &userID, true, "", nil))
}

// RefreshRejected logs a refused rotation. userID is nil when the token
// could not be parsed.
func (l *Logger) RefreshRejected(ctx context.Context, userID *primitive.ObjectID, reason string) {
	l.Log(ctx, authEvent(audit.EventRefreshRejected, userID, false, reason, nil))
}

// PasswordChanged logs a password change.
func (l *Logger) PasswordChanged(ctx context.Context, userID primitive.ObjectID) {
	l.Log(ctx, authEvent(audit.EventPasswordChanged, &userID, true, "", nil))
}

// --- Account Events ---

// Registered logs a new account.
func (l *Logger) Registered(ctx context.Context, userID primitive.ObjectID, username string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAccount,
		EventType: audit.EventRegistered,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"username": username},
	})
}

// ProfileUpdated logs a change to account details, avatar or cover image.
func (l *Logger) ProfileUpdated(ctx context.Context, userID primitive.ObjectID, field string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAccount,
		EventType: audit.EventProfileUpdated,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"field": field},
	})
}
