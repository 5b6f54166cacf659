package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	errorsfeature "github.com/dalemusser/playtweet/internal/app/features/errors"
	"github.com/dalemusser/playtweet/internal/app/features/register"
	"github.com/dalemusser/playtweet/internal/app/services/accounts"
	"github.com/dalemusser/playtweet/internal/app/system/apierror"
	"github.com/dalemusser/playtweet/internal/app/system/auth"
	"github.com/dalemusser/playtweet/internal/app/system/media"
	"github.com/dalemusser/playtweet/internal/domain/models"
	"github.com/dalemusser/playtweet/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubService struct {
	pwIn       accounts.ChangePasswordInput
	pwErr      error
	accountIn  accounts.AccountInput
	avatarFile *media.Staged
	coverFile  *media.Staged
}

func (s *stubService) ChangePassword(_ context.Context, _ primitive.ObjectID, in accounts.ChangePasswordInput) error {
	s.pwIn = in
	return s.pwErr
}

func (s *stubService) UpdateAccount(_ context.Context, id primitive.ObjectID, in accounts.AccountInput) (*models.User, error) {
	s.accountIn = in
	return &models.User{ID: id, FullName: in.FullName, Email: in.Email}, nil
}

func (s *stubService) UpdateAvatar(_ context.Context, current *models.User, file *media.Staged) (*models.User, error) {
	s.avatarFile = file
	if file == nil {
		return nil, apierror.BadRequest(accounts.MsgAvatarMissing)
	}
	u := *current
	u.Avatar = models.Asset{PublicID: "PlayTweet/avatar/new.png", URL: "https://cdn.example.com/PlayTweet/avatar/new.png"}
	return &u, nil
}

func (s *stubService) UpdateCover(_ context.Context, current *models.User, file *media.Staged) (*models.User, error) {
	s.coverFile = file
	if file == nil {
		return nil, apierror.BadRequest(accounts.MsgCoverMissing)
	}
	u := *current
	u.CoverImage = &models.Asset{URL: "https://cdn.example.com/cover.png"}
	return &u, nil
}

// stubStager stages any present form file without touching disk.
type stubStager struct {
	err error
	max int64
}

func (s stubStager) MaxBytes() int64 { return s.max }

func (s stubStager) StageFormFile(r *http.Request, field string) (*media.Staged, error) {
	if s.err != nil {
		return nil, s.err
	}
	_, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil
	}
	return &media.Staged{Path: "/tmp/" + header.Filename, Filename: header.Filename, Size: header.Size}, nil
}

func (stubStager) Discard(*media.Staged) {}

func newRouter(svc Service, stager stubStager) chi.Router {
	h := NewHandler(svc, stager, errorsfeature.NewErrorLogger(zap.NewNop()))
	v := auth.NewVerifier(nil, nil, zap.NewNop())
	r := chi.NewRouter()
	MountRoutes(r, h, v)
	return r
}

func newHandler(svc Service, stager stubStager) *Handler {
	return NewHandler(svc, stager, errorsfeature.NewErrorLogger(zap.NewNop()))
}

func TestRoutes_RequireToken(t *testing.T) {
	r := newRouter(&stubService{}, stubStager{})

	routes := []struct{ method, path string }{
		{http.MethodGet, "/current-user"},
		{http.MethodPost, "/change-password"},
		{http.MethodPatch, "/update-account"},
		{http.MethodPut, "/update-account"},
		{http.MethodPatch, "/update-user-avatar"},
		{http.MethodPut, "/update-user-cover-image"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := testutil.NewRecorder()
			r.ServeHTTP(rec, testutil.NewRequest(rt.method, rt.path))
			rec.AssertStatus(t, http.StatusUnauthorized)
			if env := rec.DecodeEnvelope(t); env.Message != auth.MsgUnauthorized {
				t.Errorf("message = %q", env.Message)
			}
		})
	}
}

func TestHandleCurrentUser(t *testing.T) {
	h := newHandler(&stubService{}, stubStager{})
	user := testutil.TestUser()

	rec := testutil.NewRecorder()
	h.handleCurrentUser(rec, auth.WithTestUser(testutil.NewRequest(http.MethodGet, "/current-user"), user))

	rec.AssertStatus(t, http.StatusOK)
	env := rec.DecodeEnvelope(t)
	if env.Message != MsgCurrentUser {
		t.Errorf("message = %q", env.Message)
	}
	var got models.User
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if got.ID != user.ID || got.Username != user.Username {
		t.Errorf("user = %+v", got)
	}
}

func TestHandleChangePassword(t *testing.T) {
	svc := &stubService{}
	h := newHandler(svc, stubStager{})

	body := map[string]string{
		"currentPassword": "Abcd123!",
		"newPassword":     "Wxyz789$",
		"confirmPassword": "Wxyz789$",
	}
	req := auth.WithTestUser(testutil.NewJSONRequest(t, http.MethodPost, "/change-password", body), testutil.TestUser())
	rec := testutil.NewRecorder()
	h.handleChangePassword(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	if svc.pwIn.NewPassword != "Wxyz789$" || svc.pwIn.ConfirmPassword != "Wxyz789$" {
		t.Errorf("input = %+v", svc.pwIn)
	}
	if env := rec.DecodeEnvelope(t); env.Message != MsgPasswordChanged || string(env.Data) != "{}" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestHandleChangePassword_ServiceError(t *testing.T) {
	svc := &stubService{pwErr: apierror.BadRequest(accounts.MsgInvalidCurrent)}
	h := newHandler(svc, stubStager{})

	req := auth.WithTestUser(testutil.NewJSONRequest(t, http.MethodPost, "/change-password", map[string]string{}), testutil.TestUser())
	rec := testutil.NewRecorder()
	h.handleChangePassword(rec, req)

	rec.AssertStatus(t, http.StatusBadRequest)
	if env := rec.DecodeEnvelope(t); env.Message != accounts.MsgInvalidCurrent {
		t.Errorf("message = %q", env.Message)
	}
}

func TestHandleUpdateAccount_Multipart(t *testing.T) {
	svc := &stubService{}
	h := newHandler(svc, stubStager{})

	req := testutil.NewMultipartRequest(t, http.MethodPatch, "/update-account", map[string]string{
		"fullName": "Jane Q Doe",
		"email":    "jq@x.com",
	})
	rec := testutil.NewRecorder()
	h.handleUpdateAccount(rec, auth.WithTestUser(req, testutil.TestUser()))

	rec.AssertStatus(t, http.StatusOK)
	if svc.accountIn.FullName != "Jane Q Doe" || svc.accountIn.Email != "jq@x.com" {
		t.Errorf("input = %+v", svc.accountIn)
	}
	rec.AssertContains(t, MsgAccountUpdated)
}

func TestHandleUpdateAccount_MalformedJSON(t *testing.T) {
	h := newHandler(&stubService{}, stubStager{})

	req := testutil.NewJSONRequest(t, http.MethodPatch, "/update-account", "not an object")
	rec := testutil.NewRecorder()
	h.handleUpdateAccount(rec, auth.WithTestUser(req, testutil.TestUser()))

	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleUpdateAvatar(t *testing.T) {
	svc := &stubService{}
	h := newHandler(svc, stubStager{})

	req := testutil.NewMultipartRequest(t, http.MethodPatch, "/update-user-avatar", nil,
		testutil.FormFile{Field: "avatar", Filename: "me.png", Content: []byte("png")})
	rec := testutil.NewRecorder()
	h.handleUpdateAvatar(rec, auth.WithTestUser(req, testutil.TestUser()))

	rec.AssertStatus(t, http.StatusOK)
	if svc.avatarFile == nil || svc.avatarFile.Filename != "me.png" {
		t.Errorf("staged = %+v", svc.avatarFile)
	}
	rec.AssertContains(t, "PlayTweet/avatar/new.png")
	rec.AssertContains(t, MsgAvatarUpdated)
}

func TestHandleUpdateAvatar_Missing(t *testing.T) {
	h := newHandler(&stubService{}, stubStager{})

	req := testutil.NewMultipartRequest(t, http.MethodPatch, "/update-user-avatar", nil)
	rec := testutil.NewRecorder()
	h.handleUpdateAvatar(rec, auth.WithTestUser(req, testutil.TestUser()))

	rec.AssertStatus(t, http.StatusBadRequest)
	if env := rec.DecodeEnvelope(t); env.Message != accounts.MsgAvatarMissing {
		t.Errorf("message = %q", env.Message)
	}
}

func TestHandleUpdateCover(t *testing.T) {
	svc := &stubService{}
	h := newHandler(svc, stubStager{})

	req := testutil.NewMultipartRequest(t, http.MethodPut, "/update-user-cover-image", nil,
		testutil.FormFile{Field: "coverImage", Filename: "wide.jpg", Content: []byte("jpg")})
	rec := testutil.NewRecorder()
	h.handleUpdateCover(rec, auth.WithTestUser(req, testutil.TestUser()))

	rec.AssertStatus(t, http.StatusOK)
	if svc.coverFile == nil {
		t.Fatal("cover file was not staged")
	}
	rec.AssertContains(t, MsgCoverUpdated)
}

func TestHandleUpdateCover_TooLarge(t *testing.T) {
	h := newHandler(&stubService{}, stubStager{err: media.ErrTooLarge})

	req := testutil.NewMultipartRequest(t, http.MethodPut, "/update-user-cover-image", nil,
		testutil.FormFile{Field: "coverImage", Filename: "huge.jpg", Content: []byte("jpg")})
	rec := testutil.NewRecorder()
	h.handleUpdateCover(rec, auth.WithTestUser(req, testutil.TestUser()))

	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleUpdateCover_StageFailure(t *testing.T) {
	h := newHandler(&stubService{}, stubStager{err: errors.New("disk full")})

	req := testutil.NewMultipartRequest(t, http.MethodPut, "/update-user-cover-image", nil,
		testutil.FormFile{Field: "coverImage", Filename: "x.jpg", Content: []byte("jpg")})
	rec := testutil.NewRecorder()
	h.handleUpdateCover(rec, auth.WithTestUser(req, testutil.TestUser()))

	rec.AssertStatus(t, http.StatusInternalServerError)
}

func TestHandleUpdateAvatar_OversizedBody(t *testing.T) {
	svc := &stubService{}
	h := newHandler(svc, stubStager{max: 16})

	req := testutil.NewMultipartRequest(t, http.MethodPatch, "/update-user-avatar", nil,
		testutil.FormFile{Field: "avatar", Filename: "huge.png", Content: bytes.Repeat([]byte("x"), 2<<20)})
	rec := testutil.NewRecorder()
	h.handleUpdateAvatar(rec, auth.WithTestUser(req, testutil.TestUser()))

	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, register.MsgFileTooLarge)
	if svc.avatarFile != nil {
		t.Error("service must not receive a file")
	}
}
