package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Put(_ context.Context, p string, r io.Reader, _ *storage.PutOptions) error {
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[p] = b
	return nil
}

func (f *fakeStorage) Delete(_ context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, p)
	f.deleted = append(f.deleted, p)
	return nil
}

func (f *fakeStorage) URL(p string) string { return "https://cdn.test/" + p }

// formFile builds a real multipart request and returns its file part.
func formFile(t *testing.T, field, name string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	t.Cleanup(func() { _ = req.MultipartForm.RemoveAll() })

	f, h, err := req.FormFile(field)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f, h
}

func newUploader(t *testing.T, store Storage, maxBytes int64) *Uploader {
	t.Helper()
	u, err := New(store, Config{Folder: "PlayTweet", TempDir: t.TempDir(), MaxBytes: maxBytes}, zap.NewNop())
	require.NoError(t, err)
	return u
}

func stagedFiles(t *testing.T, dir string) []string {
	t.Helper()
	m, err := filepath.Glob(filepath.Join(dir, stagePattern))
	require.NoError(t, err)
	return m
}

func TestUploader_UploadSuccess(t *testing.T) {
	store := newFakeStorage()
	u := newUploader(t, store, 0)

	f, h := formFile(t, "avatar", "me.PNG", []byte("png-bytes"))
	staged, err := u.Stage(f, h)
	require.NoError(t, err)
	assert.Equal(t, int64(len("png-bytes")), staged.Size)
	assert.FileExists(t, staged.Path)

	res := u.Upload(context.Background(), staged, "avatar")
	asset, ok := res.(UploadedAsset)
	require.True(t, ok, "expected UploadedAsset, got %T", res)

	assert.True(t, strings.HasPrefix(asset.ID, "PlayTweet/avatar/"), asset.ID)
	assert.True(t, strings.HasSuffix(asset.ID, ".png"), asset.ID)
	assert.Equal(t, "https://cdn.test/"+asset.ID, asset.URL)
	assert.Equal(t, []byte("png-bytes"), store.objects[asset.ID])

	assert.NoFileExists(t, staged.Path, "staged file must be removed after upload")
}

func TestUploader_UploadFailureRemovesStagedFile(t *testing.T) {
	store := newFakeStorage()
	store.putErr = errors.New("bucket unavailable")
	u := newUploader(t, store, 0)

	f, h := formFile(t, "avatar", "me.jpg", []byte("jpg"))
	staged, err := u.Stage(f, h)
	require.NoError(t, err)

	res := u.Upload(context.Background(), staged, "avatar")
	failed, ok := res.(UploadFailed)
	require.True(t, ok, "expected UploadFailed, got %T", res)
	assert.NotEmpty(t, failed.Reason)
	assert.ErrorIs(t, failed, store.putErr)

	assert.NoFileExists(t, staged.Path)
	assert.Empty(t, store.objects)
}

func TestUploader_UploadNil(t *testing.T) {
	u := newUploader(t, newFakeStorage(), 0)
	_, ok := u.Upload(context.Background(), nil, "cover").(UploadFailed)
	assert.True(t, ok)
}

func TestUploader_StageTooLarge(t *testing.T) {
	u := newUploader(t, newFakeStorage(), 4)

	f, h := formFile(t, "avatar", "big.png", []byte("0123456789"))
	_, err := u.Stage(f, h)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Empty(t, stagedFiles(t, u.TempDir()))
}

func TestUploader_DiscardIsIdempotent(t *testing.T) {
	u := newUploader(t, newFakeStorage(), 0)

	f, h := formFile(t, "cover", "c.png", []byte("c"))
	staged, err := u.Stage(f, h)
	require.NoError(t, err)

	u.Discard(staged)
	u.Discard(staged)
	u.Discard(nil)
	assert.NoFileExists(t, staged.Path)
}

func TestUploader_Remove(t *testing.T) {
	store := newFakeStorage()
	u := newUploader(t, store, 0)

	require.NoError(t, u.Remove(context.Background(), ""))
	assert.Empty(t, store.deleted, "empty IDs are not deleted")

	require.NoError(t, u.Remove(context.Background(), "PlayTweet/avatar/x.png"))
	assert.Equal(t, []string{"PlayTweet/avatar/x.png"}, store.deleted)
}

func TestUploader_Sweep(t *testing.T) {
	u := newUploader(t, newFakeStorage(), 0)
	dir := u.TempDir()

	old := filepath.Join(dir, "playtweet-upload-old.png")
	fresh := filepath.Join(dir, "playtweet-upload-fresh.png")
	other := filepath.Join(dir, "unrelated.txt")
	for _, p := range []string{old, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(other, past, past))

	n, err := u.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}

func TestUploader_StageFormFile(t *testing.T) {
	u := newUploader(t, newFakeStorage(), 0)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("fullName", "Jane Doe"))
	fw, err := mw.CreateFormFile("avatar", "me.PNG")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/register", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	t.Cleanup(func() {
		if req.MultipartForm != nil {
			_ = req.MultipartForm.RemoveAll()
		}
	})

	staged, err := u.StageFormFile(req, "avatar")
	require.NoError(t, err)
	require.NotNil(t, staged)
	assert.Equal(t, int64(len("png-bytes")), staged.Size)
	assert.Equal(t, ".png", filepath.Ext(staged.Path))
	u.Discard(staged)

	missing, err := u.StageFormFile(req, "coverImage")
	require.NoError(t, err)
	assert.Nil(t, missing)

	plain := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{}`))
	plain.Header.Set("Content-Type", "application/json")
	none, err := u.StageFormFile(plain, "avatar")
	require.NoError(t, err)
	assert.Nil(t, none)
}
