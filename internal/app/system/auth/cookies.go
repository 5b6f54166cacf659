// internal/app/system/auth/cookies.go
package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Cookie names carrying the session tokens.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshTokens"
)

// CookieConfig controls the token cookies. Cookies are always HttpOnly and
// Secure with Path "/" and no Max-Age (session cookies).
type CookieConfig struct {
	SameSite http.SameSite
	Domain   string
}

// ParseSameSite maps "lax", "strict" or "none" (case-insensitive) to an
// http.SameSite. An empty value means lax.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, fmt.Errorf("invalid SameSite value %q (expected lax, strict or none)", s)
}

func (c CookieConfig) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   true,
		SameSite: c.SameSite,
	}
}

// SetTokenCookies writes both token cookies.
func (c CookieConfig) SetTokenCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, c.cookie(AccessCookie, accessToken))
	http.SetCookie(w, c.cookie(RefreshCookie, refreshToken))
}

// ClearTokenCookies expires both token cookies.
func (c CookieConfig) ClearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		ck := c.cookie(name, "")
		ck.MaxAge = -1
		http.SetCookie(w, ck)
	}
}

// RefreshTokenCookie returns the refresh token cookie value, or "".
func RefreshTokenCookie(r *http.Request) string {
	if c, err := r.Cookie(RefreshCookie); err == nil {
		return c.Value
	}
	return ""
}
