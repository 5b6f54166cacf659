// internal/app/services/accounts/service.go

// Package accounts implements the account lifecycle: registration, login,
// refresh-token rotation, logout, password change and profile updates.
//
// Every method returns either a result or an *apierror.Error (possibly
// wrapped). Store sentinels never leak past this package.
package accounts

import (
	"context"
	"time"

	"github.com/dalemusser/playtweet/internal/app/system/auditlog"
	"github.com/dalemusser/playtweet/internal/app/system/media"
	"github.com/dalemusser/playtweet/internal/app/system/tokens"
	"github.com/dalemusser/playtweet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Asset kinds, used as the storage sub-folder and the upload metric label.
const (
	KindAvatar = "avatar"
	KindCover  = "cover"
)

// UserStore is the persistence the service needs. *userstore.Store satisfies it.
type UserStore interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByLogin(ctx context.Context, username, email string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error)
	SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	RotateRefreshToken(ctx context.Context, id primitive.ObjectID, presented, next string) error
	ClearRefreshToken(ctx context.Context, id primitive.ObjectID) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	UpdateAccount(ctx context.Context, id primitive.ObjectID, fullName, email string) (*models.User, error)
	SetAvatar(ctx context.Context, id primitive.ObjectID, asset models.Asset) (*models.User, error)
	SetCoverImage(ctx context.Context, id primitive.ObjectID, asset models.Asset) (*models.User, error)
}

// Uploader moves staged files to the asset store. *media.Uploader satisfies it.
type Uploader interface {
	Upload(ctx context.Context, s *media.Staged, kind string) media.UploadResult
	Remove(ctx context.Context, id string) error
	Discard(s *media.Staged)
}

// Limiter tracks failed logins per identifier. Both ratelimit stores
// satisfy it.
type Limiter interface {
	CheckAllowed(ctx context.Context, loginID string) (allowed bool, remaining int, lockedUntil *time.Time)
	RecordFailure(ctx context.Context, loginID string) (lockedOut bool, lockedUntil *time.Time)
	ClearOnSuccess(ctx context.Context, loginID string) error
}

// TokenIssuer mints and checks token pairs. *tokens.Issuer satisfies it.
type TokenIssuer interface {
	IssuePair(u *models.User) (tokens.Pair, error)
	ParseRefresh(token string) (*tokens.RefreshClaims, error)
}

// Config holds service settings.
type Config struct {
	// DefaultCoverURL is stored as the cover image when none is uploaded.
	DefaultCoverURL string
}

// Deps bundles the service collaborators. Limiter and Audit may be nil.
type Deps struct {
	Users   UserStore
	Uploads Uploader
	Tokens  TokenIssuer
	Limiter Limiter
	Audit   *auditlog.Logger
	Logger  *zap.Logger
}

// Service orchestrates the account flows.
type Service struct {
	users   UserStore
	uploads Uploader
	tokens  TokenIssuer
	limiter Limiter
	audit   *auditlog.Logger
	logger  *zap.Logger
	cfg     Config
}

// New creates a Service.
func New(deps Deps, cfg Config) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:   deps.Users,
		uploads: deps.Uploads,
		tokens:  deps.Tokens,
		limiter: deps.Limiter,
		audit:   deps.Audit,
		logger:  logger,
		cfg:     cfg,
	}
}

// removeAsset deletes a stored asset, logging instead of failing.
func (s *Service) removeAsset(ctx context.Context, a models.Asset) {
	if a.PublicID == "" {
		return
	}
	if err := s.uploads.Remove(ctx, a.PublicID); err != nil {
		s.logger.Warn("failed to remove asset",
			zap.String("public_id", a.PublicID),
			zap.Error(err))
	}
}

func sanitize(u *models.User) *models.User {
	cp := *u
	cp.PasswordHash = ""
	cp.RefreshToken = ""
	return &cp
}
