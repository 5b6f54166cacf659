// internal/app/features/profile/profile.go
package profile

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record

import (
	"context"
	"errors"
	"mime"
	"net/http"

	errorsfeature "github.com/dalemusser/playtweet/internal/app/features/errors"
	"github.com/dalemusser/playtweet/internal/app/features/register"
	"github.com/dalemusser/playtweet/internal/app/services/accounts"
	"github.com/dalemusser/playtweet/internal/app/system/apierror"
	"github.com/dalemusser/playtweet/internal/app/system/auth"
	"github.com/dalemusser/playtweet/internal/app/system/jsonutil"
	"github.com/dalemusser/playtweet/internal/app/system/media"
	"github.com/dalemusser/playtweet/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Success messages.
const (
	MsgCurrentUser     = "Current user fetched successfully"
	MsgPasswordChanged = "Password changed successfully"
	MsgAccountUpdated  = "Account details updated successfully"
	MsgAvatarUpdated   = "Avatar image updated successfully"
	MsgCoverUpdated    = "Cover image updated successfully"
)

const maxMemory = 8 << 20

// Service is the slice of the account service used by profile routes.
type Service interface {
	ChangePassword(ctx context.Context, userID primitive.ObjectID, in accounts.ChangePasswordInput) error
	UpdateAccount(ctx context.Context, userID primitive.ObjectID, in accounts.AccountInput) (*models.User, error)
	UpdateAvatar(ctx context.Context, current *models.User, file *media.Staged) (*models.User, error)
	UpdateCover(ctx context.Context, current *models.User, file *media.Staged) (*models.User, error)
}

// Handler provides profile handlers.
type Handler struct {
	svc    Service
	stager register.Stager
	errLog *errorsfeature.ErrorLogger
}

// NewHandler creates a new profile Handler.
func NewHandler(svc Service, stager register.Stager, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{svc: svc, stager: stager, errLog: errLog}
}

// MountRoutes mounts the authenticated account routes on r.
// Update routes accept both PATCH and PUT.
func MountRoutes(r chi.Router, h *Handler, v *auth.Verifier) {
	r.Group(func(pr chi.Router) {
		pr.Use(v.Require)

		pr.Get("/current-user", h.handleCurrentUser)
		pr.Post("/change-password", h.handleChangePassword)

		pr.Patch("/update-account", h.handleUpdateAccount)
		pr.Put("/update-account", h.handleUpdateAccount)

		pr.Patch("/update-user-avatar", h.handleUpdateAvatar)
		pr.Put("/update-user-avatar", h.handleUpdateAvatar)

		pr.Patch("/update-user-cover-image", h.handleUpdateCover)
		pr.Put("/update-user-cover-image", h.handleUpdateCover)
	})
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, user, MsgCurrentUser)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var in accounts.ChangePasswordInput
	err := bind(r, &in, func() {
		in.CurrentPassword = r.FormValue("currentPassword")
		in.NewPassword = r.FormValue("newPassword")
		in.ConfirmPassword = r.FormValue("confirmPassword")
	})
	if err != nil {
		h.errLog.Respond(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), user.ID, in); err != nil {
		h.errLog.Respond(w, r, err)
		return
	}
	jsonutil.OK(w, struct{}{}, MsgPasswordChanged)
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var in accounts.AccountInput
	err := bind(r, &in, func() {
		in.FullName = r.FormValue("fullName")
		in.Email = r.FormValue("email")
	})
	if err != nil {
		h.errLog.Respond(w, r, err)
		return
	}

	u, err := h.svc.UpdateAccount(r.Context(), user.ID, in)
	if err != nil {
		h.errLog.Respond(w, r, err)
		return
	}
	jsonutil.OK(w, u, MsgAccountUpdated)
}

func (h *Handler) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.handleImage(w, r, "avatar", h.svc.UpdateAvatar, MsgAvatarUpdated)
}

func (h *Handler) handleUpdateCover(w http.ResponseWriter, r *http.Request) {
	h.handleImage(w, r, "coverImage", h.svc.UpdateCover, MsgCoverUpdated)
}

type imageUpdate func(ctx context.Context, current *models.User, file *media.Staged) (*models.User, error)

// handleImage stages a single multipart file and hands it to update. A
// missing file is passed as nil; the service reports it.
func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdate, msg string) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	register.LimitBody(w, r, h.stager.MaxBytes(), 1)
	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.errLog.Respond(w, r, register.FormError(err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	staged, err := h.stager.StageFormFile(r, field)
	if err != nil {
		h.errLog.Respond(w, r, register.StageError(err))
		return
	}

	u, err := update(r.Context(), user, staged)
	if err != nil {
		h.errLog.Respond(w, r, err)
		return
	}
	jsonutil.OK(w, u, msg)
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, auth.MsgUnauthorized)
	}
	return user, ok
}

// bind decodes a JSON body into dst, or runs fromForm for urlencoded and
// multipart bodies.
func bind(r *http.Request, dst any, fromForm func()) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" || ct == "" {
		if err := jsonutil.Decode(r, dst); err != nil && !errors.Is(err, jsonutil.ErrEmptyBody) {
			return apierror.BadRequest(jsonutil.MsgInvalidBody)
		}
		return nil
	}
	if ct == "multipart/form-data" {
		_ = r.ParseMultipartForm(1 << 20)
	}
	fromForm()
	return nil
}
