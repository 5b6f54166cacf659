// Package network provides request-origin helpers: client IP extraction and
// a per-request Client record carried in the context.
package network

import (
	"context"
	"net/http"
	"strings"
)

// GetClientIP extracts the client IP address from the request.
// It checks X-Forwarded-For and X-Real-IP headers for reverse proxy setups,
// and falls back to RemoteAddr if neither is present.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}

// Client describes who sent a request.
type Client struct {
	IP        string
	UserAgent string
}

type clientKey struct{}

// ClientFromRequest builds a Client from request headers.
func ClientFromRequest(r *http.Request) Client {
	return Client{IP: GetClientIP(r), UserAgent: r.UserAgent()}
}

// WithClient returns a copy of ctx carrying c.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFrom returns the Client stored in ctx, or the zero value.
func ClientFrom(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c
}

// Middleware stores the request's Client in its context so code below the
// transport layer can attribute events without seeing the *http.Request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClient(r.Context(), ClientFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
