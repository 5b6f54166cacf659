// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/dalemusser/playtweet/internal/app/store/users"
	"github.com/dalemusser/playtweet/internal/app/system/apierror"
	"github.com/dalemusser/playtweet/internal/app/system/jsonutil"
	"github.com/dalemusser/playtweet/internal/app/system/tokens"
	"github.com/dalemusser/playtweet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Client-facing messages.
const (
	MsgUnauthorized = "Unauthorized request"
	MsgInvalidToken = "Invalid user access token"
)

// AccessParser verifies access tokens.
type AccessParser interface {
	ParseAccess(token string) (*tokens.AccessClaims, error)
}

// UserLookup loads the sanitized user an access token refers to.
type UserLookup interface {
	GetSanitizedByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Verifier is the access-token middleware for protected routes.
type Verifier struct {
	parser AccessParser
	users  UserLookup
	logger *zap.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(parser AccessParser, users UserLookup, logger *zap.Logger) *Verifier {
	return &Verifier{parser: parser, users: users, logger: logger}
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag from the request context.
func CurrentUser(r *http.Request) (*models.User, bool) {
	u, ok := r.Context().Value(currentUserKey).(*models.User)
	return u, ok && u != nil
}

func withUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// WithTestUser injects u as the current user, bypassing token checks.
func WithTestUser(r *http.Request, u *models.User) *http.Request {
	return withUser(r, u)
}

// AccessToken returns the access token from the accessToken cookie, falling
// back to an "Authorization: Bearer <token>" header.
func AccessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Require rejects the request with 401 unless it carries a valid access
// token for an existing user, and otherwise attaches that user to the
// request context. The sanitized user never includes the password hash or
// refresh token.
func (v *Verifier) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := v.authenticate(r)
		if err != nil {
			e := apierror.From(err)
			if e.Internal() {
				v.logger.Error("access token verification failed",
					zap.Error(err),
					zap.String("path", r.URL.Path))
			} else {
				v.logger.Debug("request rejected",
					zap.String("reason", e.Message),
					zap.String("path", r.URL.Path))
			}
			jsonutil.Error(w, e.Status, e.Message)
			return
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

func (v *Verifier) authenticate(r *http.Request) (*models.User, error) {
	raw := AccessToken(r)
	if raw == "" {
		return nil, apierror.Unauthorized(MsgUnauthorized)
	}

	claims, err := v.parser.ParseAccess(raw)
	if err != nil {
		return nil, apierror.Wrap(http.StatusUnauthorized, MsgInvalidToken, err)
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apierror.Wrap(http.StatusUnauthorized, MsgInvalidToken, err)
	}

	u, err := v.users.GetSanitizedByID(r.Context(), id)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil, apierror.Wrap(http.StatusUnauthorized, MsgInvalidToken, err)
	}
	if err != nil {
		return nil, apierror.Internal(err)
	}
	return u, nil
}
