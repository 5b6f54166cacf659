// Package apicors provides the CORS policy for the account API.
//
// Tokens travel in HttpOnly cookies, so browsers must send credentials on
// cross-origin requests. That rules out the "*" origin: only the configured
// origins are echoed back, and Access-Control-Allow-Credentials is set.
//
// Usage in routes.go:
//
//	r.Use(apicors.Middleware(appCfg.CORSOrigins))
package apicors

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// Methods and headers the account API accepts.
var (
	allowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodOptions}
	allowedHeaders = []string{"Authorization", "Content-Type", "Accept", "X-Request-ID"}
	exposedHeaders = []string{"Retry-After", "X-Request-ID"}
)

// Options builds the cors.Options for the given origins. Blank entries and
// "*" are dropped, since a wildcard cannot be combined with credentials.
func Options(origins []string) cors.Options {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" || o == "*" {
			continue
		}
		allowed = append(allowed, strings.TrimRight(o, "/"))
	}
	return cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

// Middleware returns credentialed CORS middleware for the given origins.
// With no origins configured, cross-origin requests get no CORS headers.
func Middleware(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(Options(origins))
}

// ParseOrigins splits a comma-separated origin list.
func ParseOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
