package testutil

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/playtweet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestUser returns a sanitized user for testing authenticated handlers.
// Inject it with auth.WithTestUser.
func TestUser() *models.User {
	return &models.User{
		ID:       primitive.NewObjectID(),
		Username: "jane_99",
		Email:    "jane@x.com",
		FullName: "Jane Doe",
		Avatar:   models.Asset{PublicID: "PlayTweet/avatar/old.png", URL: "https://cdn.example.com/PlayTweet/avatar/old.png"},
	}
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request with v encoded as the JSON body.
func NewJSONRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// FormFile is a file part for NewMultipartRequest.
type FormFile struct {
	Field    string
	Filename string
	Content  []byte
}

// NewMultipartRequest creates a multipart/form-data request with the given
// fields and files.
func NewMultipartRequest(t *testing.T, method, target string, fields map[string]string, files ...FormFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			t.Fatalf("create form file %s: %v", f.Field, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			t.Fatalf("write form file %s: %v", f.Field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	body := r.Body.String()
	if !strings.Contains(body, expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// Envelope is the decoded JSON response body, success or failure.
type Envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

// DecodeEnvelope decodes the response body.
func (r *ResponseRecorder) DecodeEnvelope(t *testing.T) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(r.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response body %q: %v", r.Body.String(), err)
	}
	return env
}

// Cookie returns the named Set-Cookie from the response, or nil.
func (r *ResponseRecorder) Cookie(name string) *http.Cookie {
	for _, c := range r.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
