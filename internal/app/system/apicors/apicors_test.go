package apicors

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(origins []string, method, origin string) *httptest.ResponseRecorder {
	h := Middleware(origins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, "/api/v1/users/login", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_AllowedOrigin(t *testing.T) {
	rec := serve([]string{"https://app.example.com"}, http.MethodPost, "https://app.example.com")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q, want true", got)
	}
}

func TestMiddleware_OtherOrigin(t *testing.T) {
	rec := serve([]string{"https://app.example.com"}, http.MethodPost, "https://evil.example.com")

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}
}

func TestMiddleware_Preflight(t *testing.T) {
	rec := serve([]string{"https://app.example.com"}, http.MethodOptions, "https://app.example.com")

	if rec.Code >= 300 {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestOptions_DropsWildcard(t *testing.T) {
	opts := Options([]string{"*", " ", "https://a.example.com/"})
	if len(opts.AllowedOrigins) != 1 || opts.AllowedOrigins[0] != "https://a.example.com" {
		t.Errorf("AllowedOrigins = %v", opts.AllowedOrigins)
	}
	if !opts.AllowCredentials {
		t.Error("AllowCredentials should be true")
	}
}

func TestParseOrigins(t *testing.T) {
	got := ParseOrigins(" https://a.com, ,https://b.com ")
	if len(got) != 2 || got[0] != "https://a.com" || got[1] != "https://b.com" {
		t.Errorf("ParseOrigins() = %v", got)
	}
	if ParseOrigins("") != nil {
		t.Error("ParseOrigins(\"\") should be nil")
	}
}
