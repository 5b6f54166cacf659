package refreshtoken

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	errorsfeature "github.com/dalemusser/playtweet/internal/app/features/errors"
	"github.com/dalemusser/playtweet/internal/app/services/accounts"
	"github.com/dalemusser/playtweet/internal/app/system/apierror"
	"github.com/dalemusser/playtweet/internal/app/system/auth"
	"github.com/dalemusser/playtweet/internal/app/system/tokens"
	"github.com/dalemusser/playtweet/internal/testutil"
	"go.uber.org/zap"
)

// stubRefresher accepts exactly one token.
type stubRefresher struct {
	valid string
	got   string
}

func (s *stubRefresher) Refresh(_ context.Context, presented string) (tokens.Pair, error) {
	s.got = presented
	if presented == "" {
		return tokens.Pair{}, apierror.Unauthorized(accounts.MsgRefreshRequired)
	}
	if presented != s.valid {
		return tokens.Pair{}, apierror.Unauthorized(accounts.MsgRefreshUsed)
	}
	return tokens.Pair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
}

func newRouter(svc Refresher) http.Handler {
	h := NewHandler(svc, auth.CookieConfig{SameSite: http.SameSiteStrictMode}, errorsfeature.NewErrorLogger(zap.NewNop()))
	return Routes(h)
}

func TestRefresh_FromCookie(t *testing.T) {
	svc := &stubRefresher{valid: "old-refresh"}
	req := testutil.NewRequest(http.MethodPost, "/")
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: "old-refresh"})

	rec := testutil.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	env := rec.DecodeEnvelope(t)
	if env.Message != MsgRefreshed {
		t.Errorf("message = %q", env.Message)
	}
	rec.AssertContains(t, `"accessToken":"new-access"`)
	rec.AssertContains(t, `"refreshToken":"new-refresh"`)

	c := rec.Cookie(auth.RefreshCookie)
	if c == nil || c.Value != "new-refresh" || c.SameSite != http.SameSiteStrictMode {
		t.Errorf("refresh cookie = %+v", c)
	}
	if c := rec.Cookie(auth.AccessCookie); c == nil || c.Value != "new-access" {
		t.Errorf("access cookie = %+v", c)
	}
}

func TestRefresh_CookieWinsOverBody(t *testing.T) {
	svc := &stubRefresher{valid: "cookie-tok"}
	req := testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]string{"refreshToken": "body-tok"})
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: "cookie-tok"})

	rec := testutil.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	if svc.got != "cookie-tok" {
		t.Errorf("presented = %q, want cookie-tok", svc.got)
	}
}

func TestRefresh_FromBody(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{"json", func(t *testing.T) *http.Request {
			return testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]string{"refreshToken": "old-refresh"})
		}},
		{"form", func(t *testing.T) *http.Request {
			form := url.Values{"refreshToken": {"old-refresh"}}
			req, _ := http.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req
		}},
		{"multipart", func(t *testing.T) *http.Request {
			return testutil.NewMultipartRequest(t, http.MethodPost, "/", map[string]string{"refreshToken": "old-refresh"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubRefresher{valid: "old-refresh"}
			rec := testutil.NewRecorder()
			newRouter(svc).ServeHTTP(rec, tt.req(t))

			rec.AssertStatus(t, http.StatusOK)
			if svc.got != "old-refresh" {
				t.Errorf("presented = %q", svc.got)
			}
		})
	}
}

func TestRefresh_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		req     func(t *testing.T) *http.Request
		wantMsg string
	}{
		{"no token", func(t *testing.T) *http.Request {
			return testutil.NewRequest(http.MethodPost, "/")
		}, accounts.MsgRefreshRequired},
		{"malformed body", func(t *testing.T) *http.Request {
			req, _ := http.NewRequest(http.MethodPost, "/", strings.NewReader(`{"refreshToken":`))
			req.Header.Set("Content-Type", "application/json")
			return req
		}, accounts.MsgRefreshRequired},
		{"used token", func(t *testing.T) *http.Request {
			return testutil.NewJSONRequest(t, http.MethodPost, "/", map[string]string{"refreshToken": "stale"})
		}, accounts.MsgRefreshUsed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			newRouter(&stubRefresher{valid: "old-refresh"}).ServeHTTP(rec, tt.req(t))

			rec.AssertStatus(t, http.StatusUnauthorized)
			if env := rec.DecodeEnvelope(t); env.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", env.Message, tt.wantMsg)
			}
			if len(rec.Result().Cookies()) != 0 {
				t.Error("no cookies should be set on rejection")
			}
		})
	}
}
