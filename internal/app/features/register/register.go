// internal/app/features/register/register.go
package register

import (
	"context"
	"errors"
	"net/http"

	errorsfeature "github.com/dalemusser/playtweet/internal/app/features/errors"
	"github.com/dalemusser/playtweet/internal/app/services/accounts"
	"github.com/dalemusser/playtweet/internal/app/system/apierror"
	"github.com/dalemusser/playtweet/internal/app/system/jsonutil"
	"github.com/dalemusser/playtweet/internal/app/system/media"
	"github.com/dalemusser/playtweet/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// MsgRegistered is the success message.
const MsgRegistered = "User registered Successfully!"

// maxMemory is how much of a multipart body is held in memory; larger
// parts spill to disk.
const maxMemory = 8 << 20

// formOverhead is the body allowance for text fields and multipart framing
// on top of the files themselves.
const formOverhead = 1 << 20

// MsgFileTooLarge is returned when an upload exceeds the size limit.
const MsgFileTooLarge = "File is too large"

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, in accounts.RegisterInput) (*models.User, error)
}

// Stager copies uploaded form files to local disk.
type Stager interface {
	StageFormFile(r *http.Request, field string) (*media.Staged, error)
	Discard(s *media.Staged)
	MaxBytes() int64
}

// Handler provides the registration handler.
type Handler struct {
	svc    Registrar
	stager Stager
	errLog *errorsfeature.ErrorLogger
}

// NewHandler creates a new registration Handler.
func NewHandler(svc Registrar, stager Stager, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{svc: svc, stager: stager, errLog: errLog}
}

// Routes returns a chi.Router with the registration route mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.handleRegister)
	return r
}

// handleRegister accepts multipart fields fullName, username, email and
// password, plus files avatar (required) and coverImage (optional).
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	LimitBody(w, r, h.stager.MaxBytes(), 2)
	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.errLog.Respond(w, r, FormError(err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	in := accounts.RegisterInput{
		FullName: r.FormValue("fullName"),
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}

	var err error
	if in.Avatar, err = h.stager.StageFormFile(r, "avatar"); err != nil {
		h.errLog.Respond(w, r, StageError(err))
		return
	}
	if in.CoverImage, err = h.stager.StageFormFile(r, "coverImage"); err != nil {
		h.stager.Discard(in.Avatar)
		h.errLog.Respond(w, r, StageError(err))
		return
	}

	u, err := h.svc.Register(r.Context(), in)
	if err != nil {
		h.errLog.Respond(w, r, err)
		return
	}
	jsonutil.Created(w, u, MsgRegistered)
}

// LimitBody caps the request body at files uploads of maxFile bytes each
// plus formOverhead, so an oversized upload fails while the form is read
// instead of after it has been spooled to disk. A maxFile of zero leaves
// the body unbounded.
func LimitBody(w http.ResponseWriter, r *http.Request, maxFile int64, files int) {
	if maxFile <= 0 || r.Body == nil {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFile*int64(files)+formOverhead)
}

// FormError maps a multipart parse failure to a client error.
func FormError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apierror.BadRequest(MsgFileTooLarge)
	}
	return apierror.BadRequest("Invalid form data")
}

// StageError maps a staging failure to a client error.
func StageError(err error) error {
	if errors.Is(err, media.ErrTooLarge) {
		return apierror.BadRequest(MsgFileTooLarge)
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apierror.BadRequest(MsgFileTooLarge)
	}
	return apierror.Internal(err)
}
