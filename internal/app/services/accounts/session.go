// internal/app/services/accounts/session.go
package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	userstore "github.com/dalemusser/playtweet/internal/app/store/users"
	"github.com/dalemusser/playtweet/internal/app/system/apierror"
	"github.com/dalemusser/playtweet/internal/app/system/tokens"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Refresh messages.
const (
	MsgRefreshRequired = "Unauthorized request"
	MsgInvalidRefresh  = "Invalid refresh token"
	MsgRefreshUsed     = "Refresh token is expired or used"
	MsgRefreshUserGone = "User not found"
)

// Logout clears the stored refresh token. Logging out twice is not an error.
func (s *Service) Logout(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return apierror.Internal(fmt.Errorf("clear refresh token: %w", err))
	}
	s.audit.Logout(ctx, userID)
	return nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// be the one currently stored for the user; it is replaced with a single
// conditional update, so each refresh token can be used at most once.
func (s *Service) Refresh(ctx context.Context, presented string) (tokens.Pair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return tokens.Pair{}, apierror.Unauthorized(MsgRefreshRequired)
	}

	claims, err := s.tokens.ParseRefresh(presented)
	if err != nil {
		s.audit.RefreshRejected(ctx, nil, err.Error())
		return tokens.Pair{}, apierror.Wrap(http.StatusUnauthorized, MsgInvalidRefresh, err)
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		s.audit.RefreshRejected(ctx, nil, "bad subject")
		return tokens.Pair{}, apierror.Unauthorized(MsgInvalidRefresh)
	}

	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, userstore.ErrNotFound) {
		s.audit.RefreshRejected(ctx, &userID, "user not found")
		return tokens.Pair{}, apierror.NotFound(MsgRefreshUserGone)
	}
	if err != nil {
		return tokens.Pair{}, apierror.Internal(fmt.Errorf("load user: %w", err))
	}

	if u.RefreshToken == "" || u.RefreshToken != presented {
		s.audit.RefreshRejected(ctx, &userID, "token mismatch")
		return tokens.Pair{}, apierror.Unauthorized(MsgRefreshUsed)
	}

	pair, err := s.tokens.IssuePair(u)
	if err != nil {
		return tokens.Pair{}, apierror.Internal(fmt.Errorf("issue tokens: %w", err))
	}

	if err := s.users.RotateRefreshToken(ctx, userID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, userstore.ErrTokenMismatch) {
			s.audit.RefreshRejected(ctx, &userID, "lost rotation race")
			return tokens.Pair{}, apierror.Unauthorized(MsgRefreshUsed)
		}
		return tokens.Pair{}, apierror.Internal(fmt.Errorf("rotate refresh token: %w", err))
	}

	s.audit.TokenRefreshed(ctx, userID)
	return pair, nil
}
