// internal/app/services/accounts/profile.go
package accounts

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/dalemusser/playtweet/internal/app/store/users"
	"github.com/dalemusser/playtweet/internal/app/system/apierror"
	"github.com/dalemusser/playtweet/internal/app/system/inputval"
	"github.com/dalemusser/playtweet/internal/app/system/media"
	"github.com/dalemusser/playtweet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile messages.
const (
	MsgEmailTaken        = "Email is already in use"
	MsgAvatarMissing     = "Avatar file is missing"
	MsgCoverMissing      = "Cover image file is missing"
	MsgCoverUploadFailed = "Cover image upload failed"
)

// AccountInput is the update-account request body.
type AccountInput struct {
	FullName string `json:"fullName" validate:"fullname" label:"Full name"`
	Email    string `json:"email" validate:"emailshape" label:"Email"`
}

// UpdateAccount changes the full name and email.
func (s *Service) UpdateAccount(ctx context.Context, userID primitive.ObjectID, in AccountInput) (*models.User, error) {
	if !inputval.AllPresent(in.FullName, in.Email) {
		return nil, apierror.BadRequest(inputval.MsgAllFieldsRequired)
	}
	if res := inputval.Validate(in); res.HasErrors() {
		return nil, apierror.BadRequest(res.First())
	}

	taken, err := s.users.EmailExistsForOther(ctx, in.Email, userID)
	if err != nil {
		return nil, apierror.Internal(fmt.Errorf("check email: %w", err))
	}
	if taken {
		return nil, apierror.Conflict(MsgEmailTaken)
	}

	u, err := s.users.UpdateAccount(ctx, userID, in.FullName, in.Email)
	if err != nil {
		return nil, s.updateErr(err)
	}
	s.audit.ProfileUpdated(ctx, userID, "account")
	return u, nil
}

// UpdateAvatar uploads a new avatar, stores it, then removes the previous one.
func (s *Service) UpdateAvatar(ctx context.Context, current *models.User, file *media.Staged) (*models.User, error) {
	defer s.uploads.Discard(file)
	if file == nil {
		return nil, apierror.BadRequest(MsgAvatarMissing)
	}

	asset, err := s.upload(ctx, file, KindAvatar, MsgAvatarUploadFailed)
	if err != nil {
		return nil, err
	}
	u, err := s.users.SetAvatar(ctx, current.ID, asset)
	if err != nil {
		s.removeAsset(ctx, asset)
		return nil, s.updateErr(err)
	}

	s.removeAsset(ctx, current.Avatar)
	s.audit.ProfileUpdated(ctx, current.ID, KindAvatar)
	return u, nil
}

// UpdateCover uploads a new cover image, stores it, then removes the previous one.
func (s *Service) UpdateCover(ctx context.Context, current *models.User, file *media.Staged) (*models.User, error) {
	defer s.uploads.Discard(file)
	if file == nil {
		return nil, apierror.BadRequest(MsgCoverMissing)
	}

	asset, err := s.upload(ctx, file, KindCover, MsgCoverUploadFailed)
	if err != nil {
		return nil, err
	}
	u, err := s.users.SetCoverImage(ctx, current.ID, asset)
	if err != nil {
		s.removeAsset(ctx, asset)
		return nil, s.updateErr(err)
	}

	if current.CoverImage != nil {
		s.removeAsset(ctx, *current.CoverImage)
	}
	s.audit.ProfileUpdated(ctx, current.ID, KindCover)
	return u, nil
}

func (s *Service) upload(ctx context.Context, file *media.Staged, kind, failMsg string) (models.Asset, error) {
	res := s.uploads.Upload(ctx, file, kind)
	if up, ok := res.(media.UploadedAsset); ok {
		return models.Asset{PublicID: up.ID, URL: up.URL}, nil
	}
	return models.Asset{}, apierror.Upstream(failMsg, res.(media.UploadFailed))
}

func (s *Service) updateErr(err error) error {
	switch {
	case errors.Is(err, userstore.ErrDuplicate):
		return apierror.Conflict(MsgEmailTaken)
	case errors.Is(err, userstore.ErrNotFound):
		return apierror.NotFound(MsgUserNotFound)
	default:
		return apierror.Internal(fmt.Errorf("update user: %w", err))
	}
}
