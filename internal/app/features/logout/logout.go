// internal/app/features/logout/logout.go
package logout

import (
	"context"
	"net/http"

	errorsfeature "github.com/dalemusser/playtweet/internal/app/features/errors"
	"github.com/dalemusser/playtweet/internal/app/system/auth"
	"github.com/dalemusser/playtweet/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MsgLoggedOut is the success message.
const MsgLoggedOut = "User logged out"

// Logouter ends a user's session.
type Logouter interface {
	Logout(ctx context.Context, userID primitive.ObjectID) error
}

// Handler provides the logout handler.
type Handler struct {
	svc     Logouter
	cookies auth.CookieConfig
	errLog  *errorsfeature.ErrorLogger
}

// NewHandler creates a new logout Handler.
func NewHandler(svc Logouter, cookies auth.CookieConfig, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{svc: svc, cookies: cookies, errLog: errLog}
}

// Routes returns a chi.Router with the logout route mounted behind the
// access-token check.
func Routes(h *Handler, v *auth.Verifier) http.Handler {
	r := chi.NewRouter()
	r.Use(v.Require)
	r.Post("/", h.handleLogout)
	return r
}

// handleLogout clears the stored refresh token and expires both cookies.
// Access tokens already issued stay valid until they expire.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		jsonutil.Unauthorized(w, auth.MsgUnauthorized)
		return
	}

	if err := h.svc.Logout(r.Context(), user.ID); err != nil {
		h.errLog.Respond(w, r, err)
		return
	}

	h.cookies.ClearTokenCookies(w)
	jsonutil.OK(w, struct{}{}, MsgLoggedOut)
}
