// internal/app/services/accounts/register.go
package accounts

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/dalemusser/playtweet/internal/app/store/users"
	"github.com/dalemusser/playtweet/internal/app/system/apierror"
	"github.com/dalemusser/playtweet/internal/app/system/authutil"
	"github.com/dalemusser/playtweet/internal/app/system/inputval"
	"github.com/dalemusser/playtweet/internal/app/system/media"
	"github.com/dalemusser/playtweet/internal/domain/models"
)

// Registration messages.
const (
	MsgAvatarRequired     = "Avatar is required!"
	MsgAvatarUploadFailed = "Avatar upload failed"
	msgUserExists         = "User with Email:%s or Username:%s already exists!"
)

// RegisterInput is a registration request with its staged files.
// CoverImage may be nil.
type RegisterInput struct {
	FullName string `json:"fullName" validate:"fullname" label:"Full name"`
	Username string `json:"username" validate:"username" label:"Username"`
	Email    string `json:"email" validate:"emailshape" label:"Email"`
	Password string `json:"password" validate:"strongpassword" label:"Password"`

	Avatar     *media.Staged `json:"-"`
	CoverImage *media.Staged `json:"-"`
}

// Register validates the input, uploads the images and creates the user.
// Staged files are always released. No user is created unless the avatar
// upload succeeded.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	defer s.uploads.Discard(in.Avatar)
	defer s.uploads.Discard(in.CoverImage)

	if !inputval.AllPresent(in.FullName, in.Username, in.Email, in.Password) {
		return nil, apierror.BadRequest(inputval.MsgAllFieldsRequired)
	}
	if res := inputval.Validate(in); res.HasErrors() {
		return nil, apierror.BadRequest(res.First())
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, apierror.Internal(fmt.Errorf("check existing user: %w", err))
	}
	if exists {
		return nil, apierror.Conflict(fmt.Sprintf(msgUserExists, in.Email, in.Username))
	}

	if in.Avatar == nil {
		return nil, apierror.BadRequest(MsgAvatarRequired)
	}

	var avatar models.Asset
	switch res := s.uploads.Upload(ctx, in.Avatar, KindAvatar).(type) {
	case media.UploadedAsset:
		avatar = models.Asset{PublicID: res.ID, URL: res.URL}
	case media.UploadFailed:
		return nil, apierror.Upstream(MsgAvatarUploadFailed, res)
	}

	cover := s.defaultCover()
	if in.CoverImage != nil {
		if res, ok := s.uploads.Upload(ctx, in.CoverImage, KindCover).(media.UploadedAsset); ok {
			cover = &models.Asset{PublicID: res.ID, URL: res.URL}
		}
	}

	hash, err := authutil.HashPassword(in.Password)
	if err != nil {
		s.discardAssets(ctx, avatar, cover)
		return nil, apierror.Internal(fmt.Errorf("hash password: %w", err))
	}

	created, err := s.users.Create(ctx, models.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		Avatar:       avatar,
		CoverImage:   cover,
	})
	if err != nil {
		s.discardAssets(ctx, avatar, cover)
		if errors.Is(err, userstore.ErrDuplicate) {
			return nil, apierror.Conflict(fmt.Sprintf(msgUserExists, in.Email, in.Username))
		}
		return nil, apierror.Internal(fmt.Errorf("create user: %w", err))
	}

	s.audit.Registered(ctx, created.ID, created.Username)
	return sanitize(&created), nil
}

func (s *Service) defaultCover() *models.Asset {
	if s.cfg.DefaultCoverURL == "" {
		return nil
	}
	return &models.Asset{URL: s.cfg.DefaultCoverURL}
}

func (s *Service) discardAssets(ctx context.Context, avatar models.Asset, cover *models.Asset) {
	s.removeAsset(ctx, avatar)
	if cover != nil {
		s.removeAsset(ctx, *cover)
	}
}
