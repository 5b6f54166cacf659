// internal/app/services/accounts/password.go
package accounts

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/dalemusser/playtweet/internal/app/store/users"
	"github.com/dalemusser/playtweet/internal/app/system/apierror"
	"github.com/dalemusser/playtweet/internal/app/system/authutil"
	"github.com/dalemusser/playtweet/internal/app/system/inputval"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Change-password messages.
const (
	MsgPasswordMismatch  = "New password and confirm password do not match"
	MsgInvalidCurrent    = "Invalid current password"
	MsgPasswordUnchanged = "New password must be different from the current password"
)

// ChangePasswordInput is the change-password request body.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ChangePassword replaces the password after checking the current one.
// Only the hash is written; other fields are untouched.
func (s *Service) ChangePassword(ctx context.Context, userID primitive.ObjectID, in ChangePasswordInput) error {
	if !inputval.AllPresent(in.CurrentPassword, in.NewPassword, in.ConfirmPassword) {
		return apierror.BadRequest(inputval.MsgAllFieldsRequired)
	}
	if in.NewPassword != in.ConfirmPassword {
		return apierror.BadRequest(MsgPasswordMismatch)
	}
	if err := authutil.ValidatePassword(in.NewPassword); err != nil {
		return apierror.BadRequest(err.Error())
	}

	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, userstore.ErrNotFound) {
		return apierror.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return apierror.Internal(fmt.Errorf("load user: %w", err))
	}

	if !authutil.CheckPassword(in.CurrentPassword, u.PasswordHash) {
		return apierror.BadRequest(MsgInvalidCurrent)
	}
	if in.NewPassword == in.CurrentPassword {
		return apierror.BadRequest(MsgPasswordUnchanged)
	}

	hash, err := authutil.HashPassword(in.NewPassword)
	if err != nil {
		return apierror.Internal(fmt.Errorf("hash password: %w", err))
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return apierror.NotFound(MsgUserNotFound)
		}
		return apierror.Internal(fmt.Errorf("update password: %w", err))
	}

	s.audit.PasswordChanged(ctx, userID)
	return nil
}
