// internal/app/features/refreshtoken/refreshtoken.go
package refreshtoken

import (
	"context"
	"mime"
	"net/http"

	errorsfeature "github.com/dalemusser/playtweet/internal/app/features/errors"
	"github.com/dalemusser/playtweet/internal/app/system/auth"
	"github.com/dalemusser/playtweet/internal/app/system/jsonutil"
	"github.com/dalemusser/playtweet/internal/app/system/tokens"
	"github.com/go-chi/chi/v5"
)

// MsgRefreshed is the success message.
const MsgRefreshed = "Access token refreshed"

// Refresher rotates a refresh token into a new pair.
type Refresher interface {
	Refresh(ctx context.Context, presented string) (tokens.Pair, error)
}

// Handler provides the token refresh handler.
type Handler struct {
	svc     Refresher
	cookies auth.CookieConfig
	errLog  *errorsfeature.ErrorLogger
}

// NewHandler creates a new refresh Handler.
func NewHandler(svc Refresher, cookies auth.CookieConfig, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{svc: svc, cookies: cookies, errLog: errLog}
}

// Routes returns a chi.Router with the refresh route mounted. The route is
// public; the refresh token is the credential.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.handleRefresh)
	return r
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	pair, err := h.svc.Refresh(r.Context(), presentedToken(r))
	if err != nil {
		h.errLog.Respond(w, r, err)
		return
	}

	h.cookies.SetTokenCookies(w, pair.AccessToken, pair.RefreshToken)
	jsonutil.OK(w, pair, MsgRefreshed)
}

// presentedToken reads the refresh token cookie, falling back to a
// "refreshToken" field in a JSON or form body. A malformed body counts as
// no token.
func presentedToken(r *http.Request) string {
	if tok := auth.RefreshTokenCookie(r); tok != "" {
		return tok
	}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json", "":
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := jsonutil.Decode(r, &body); err != nil {
			return ""
		}
		return body.RefreshToken
	case "multipart/form-data":
		_ = r.ParseMultipartForm(1 << 20)
	}
	return r.FormValue("refreshToken")
}
