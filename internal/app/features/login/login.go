// internal/app/features/login/login.go
package login

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Identifier: The username or email a user types to log in

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	errorsfeature "github.com/dalemusser/playtweet/internal/app/features/errors"
	"github.com/dalemusser/playtweet/internal/app/services/accounts"
	"github.com/dalemusser/playtweet/internal/app/system/apierror"
	"github.com/dalemusser/playtweet/internal/app/system/auth"
	"github.com/dalemusser/playtweet/internal/app/system/jsonutil"
	"github.com/dalemusser/playtweet/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// MsgLoggedIn is the success message.
const MsgLoggedIn = "User logged in successfully"

// Authenticator checks credentials and issues tokens.
type Authenticator interface {
	Login(ctx context.Context, in accounts.LoginInput) (*accounts.LoginResult, error)
}

// Handler provides the login handler.
type Handler struct {
	svc     Authenticator
	cookies auth.CookieConfig
	errLog  *errorsfeature.ErrorLogger
	now     func() time.Time
}

// NewHandler creates a new login Handler.
func NewHandler(svc Authenticator, cookies auth.CookieConfig, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{svc: svc, cookies: cookies, errLog: errLog, now: time.Now}
}

// Routes returns a chi.Router with the login route mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.handleLogin)
	return r
}

// loginData is the success payload.
type loginData struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// handleLogin accepts a JSON body {username|email, password}; urlencoded
// and multipart forms with the same fields are accepted too.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	in, err := readInput(r)
	if err != nil {
		h.errLog.Respond(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), in)
	if err != nil {
		var locked *accounts.LockedOut
		if errors.As(err, &locked) {
			w.Header().Set("Retry-After", strconv.Itoa(locked.RetryAfter(h.now())))
		}
		h.errLog.Respond(w, r, err)
		return
	}

	h.cookies.SetTokenCookies(w, res.Tokens.AccessToken, res.Tokens.RefreshToken)
	jsonutil.OK(w, loginData{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, MsgLoggedIn)
}

func readInput(r *http.Request) (accounts.LoginInput, error) {
	var in accounts.LoginInput
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" || ct == "" {
		if err := jsonutil.Decode(r, &in); err != nil && !errors.Is(err, jsonutil.ErrEmptyBody) {
			return in, apierror.BadRequest(jsonutil.MsgInvalidBody)
		}
		return in, nil
	}

	if ct == "multipart/form-data" {
		_ = r.ParseMultipartForm(1 << 20)
	}
	in.Username = r.FormValue("username")
	in.Email = r.FormValue("email")
	in.Password = r.FormValue("password")
	return in, nil
}
