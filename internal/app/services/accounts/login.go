// internal/app/services/accounts/login.go
package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	userstore "github.com/dalemusser/playtweet/internal/app/store/users"
	"github.com/dalemusser/playtweet/internal/app/system/apierror"
	"github.com/dalemusser/playtweet/internal/app/system/authutil"
	"github.com/dalemusser/playtweet/internal/app/system/normalize"
	"github.com/dalemusser/playtweet/internal/app/system/tokens"
	"github.com/dalemusser/playtweet/internal/domain/models"
	"go.uber.org/zap"
)

// Login messages.
const (
	MsgIdentifierRequired = "Username or email is required"
	MsgPasswordRequired   = "Password is required"
	MsgUserNotFound       = "User does not exist"
	MsgInvalidCredentials = "Invalid user credentials"
	MsgTooManyAttempts    = "Too many failed login attempts. Please try again later."
)

// LoginInput carries the credentials. Either Username or Email is enough.
type LoginInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// identifier is the key used for rate limiting.
func (in LoginInput) identifier() string {
	if u := normalize.LoginIdentifier(in.Username); u != "" {
		return u
	}
	return normalize.LoginIdentifier(in.Email)
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	User   *models.User `json:"user"`
	Tokens tokens.Pair  `json:"-"`
}

// LockedOut is wrapped in the 429 error returned while an identifier is
// locked. Transports use it to set Retry-After.
type LockedOut struct {
	Until time.Time
}

func (e *LockedOut) Error() string {
	return "login locked until " + e.Until.UTC().Format(time.RFC3339)
}

// RetryAfter returns the whole seconds left on the lock, at least 1.
func (e *LockedOut) RetryAfter(now time.Time) int {
	secs := int(e.Until.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func lockedError(until *time.Time) error {
	lo := &LockedOut{}
	if until != nil {
		lo.Until = *until
	}
	return apierror.Wrap(http.StatusTooManyRequests, MsgTooManyAttempts, lo)
}

// Login authenticates by username or email, issues a token pair and stores
// the refresh token, replacing any earlier session.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	id := in.identifier()
	if id == "" {
		return nil, apierror.BadRequest(MsgIdentifierRequired)
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, apierror.BadRequest(MsgPasswordRequired)
	}

	if s.limiter != nil {
		if allowed, _, until := s.limiter.CheckAllowed(ctx, id); !allowed {
			s.audit.LoginRateLimited(ctx, id)
			return nil, lockedError(until)
		}
	}

	u, err := s.users.GetByLogin(ctx, in.Username, in.Email)
	if errors.Is(err, userstore.ErrNotFound) {
		s.audit.LoginFailedUserNotFound(ctx, id)
		s.recordFailure(ctx, id)
		return nil, apierror.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, apierror.Internal(fmt.Errorf("find user: %w", err))
	}

	if !authutil.CheckPassword(in.Password, u.PasswordHash) {
		s.audit.LoginFailedWrongPassword(ctx, u.ID, id)
		s.recordFailure(ctx, id)
		return nil, apierror.Unauthorized(MsgInvalidCredentials)
	}

	if s.limiter != nil {
		if err := s.limiter.ClearOnSuccess(ctx, id); err != nil {
			s.logger.Warn("failed to clear login attempts",
				zap.String("identifier", id),
				zap.Error(err))
		}
	}

	pair, err := s.tokens.IssuePair(u)
	if err != nil {
		return nil, apierror.Internal(fmt.Errorf("issue tokens: %w", err))
	}
	if err := s.users.SetRefreshToken(ctx, u.ID, pair.RefreshToken); err != nil {
		return nil, apierror.Internal(fmt.Errorf("store refresh token: %w", err))
	}

	s.audit.LoginSuccess(ctx, u.ID, id)
	return &LoginResult{User: sanitize(u), Tokens: pair}, nil
}

func (s *Service) recordFailure(ctx context.Context, id string) {
	if s.limiter == nil {
		return
	}
	if locked, _ := s.limiter.RecordFailure(ctx, id); locked {
		s.audit.LoginLockedOut(ctx, id)
	}
}
