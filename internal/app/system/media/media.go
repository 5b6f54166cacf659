// Package media uploads profile images to the configured object store.
//
// Incoming multipart files are first staged to a local temp directory. An
// upload attempt always removes its staged file, whether the remote write
// succeeded or not; removal failures are logged and never returned.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/playtweet/internal/app/system/metrics"
	"github.com/dalemusser/playtweet/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadResult is either UploadedAsset or UploadFailed.
type UploadResult interface {
	isUploadResult()
}

// UploadedAsset is a stored file: URL is public, ID is the storage key.
type UploadedAsset struct {
	URL string
	ID  string
}

// UploadFailed carries the reason an upload did not complete.
type UploadFailed struct {
	Reason string
	Err    error
}

func (UploadedAsset) isUploadResult() {}
func (UploadFailed) isUploadResult()  {}

func (f UploadFailed) Error() string {
	if f.Err != nil {
		return f.Reason + ": " + f.Err.Error()
	}
	return f.Reason
}

func (f UploadFailed) Unwrap() error { return f.Err }

// Storage is the subset of waffle storage.Store used for uploads.
type Storage interface {
	Put(ctx context.Context, path string, r io.Reader, opts *storage.PutOptions) error
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

// ErrTooLarge is returned by Stage when a file exceeds Config.MaxBytes.
var ErrTooLarge = errors.New("file is too large")

// Config controls where files are staged and stored.
type Config struct {
	Folder   string // top-level storage folder, e.g. "PlayTweet"
	TempDir  string // staging directory; os.TempDir() when empty
	MaxBytes int64  // per-file limit; 0 means unlimited
}

const stagePattern = "playtweet-upload-*"

// Staged is a multipart file copied to local disk.
type Staged struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

// Uploader stages and uploads files.
type Uploader struct {
	store  Storage
	cfg    Config
	logger *zap.Logger
}

// New creates an Uploader. It creates cfg.TempDir if needed.
func New(store Storage, cfg Config, logger *zap.Logger) (*Uploader, error) {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload temp dir: %w", err)
	}
	return &Uploader{store: store, cfg: cfg, logger: logger}, nil
}

// TempDir returns the staging directory.
func (u *Uploader) TempDir() string { return u.cfg.TempDir }

// MaxBytes returns the per-file size limit. Zero means unlimited.
func (u *Uploader) MaxBytes() int64 { return u.cfg.MaxBytes }

// Stage copies src to a new file in the staging directory.
func (u *Uploader) Stage(src multipart.File, header *multipart.FileHeader) (*Staged, error) {
	if u.cfg.MaxBytes > 0 && header.Size > u.cfg.MaxBytes {
		return nil, ErrTooLarge
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	dst, err := os.CreateTemp(u.cfg.TempDir, stagePattern+ext)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	staged := &Staged{
		Path:        dst.Name(),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}

	var r io.Reader = src
	if u.cfg.MaxBytes > 0 {
		r = io.LimitReader(src, u.cfg.MaxBytes+1)
	}
	n, copyErr := io.Copy(dst, r)
	closeErr := dst.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		u.Discard(staged)
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	if u.cfg.MaxBytes > 0 && n > u.cfg.MaxBytes {
		u.Discard(staged)
		return nil, ErrTooLarge
	}
	staged.Size = n
	if staged.ContentType == "" {
		staged.ContentType = "application/octet-stream"
	}
	return staged, nil
}

// StageFormFile stages the named file of a multipart request. It returns
// nil, nil when the request carries no such file.
func (u *Uploader) StageFormFile(r *http.Request, field string) (*Staged, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", field, err)
	}
	defer f.Close()
	return u.Stage(f, header)
}

// Upload stores a staged file under <Folder>/<kind>/ and removes the staged
// copy. It never returns nil.
func (u *Uploader) Upload(ctx context.Context, s *Staged, kind string) UploadResult {
	if s == nil {
		return UploadFailed{Reason: "no file staged"}
	}
	defer u.Discard(s)

	res := u.put(ctx, s, kind)
	_, ok := res.(UploadedAsset)
	metrics.Uploads.WithLabelValues(kind, metrics.Outcome(ok)).Inc()
	if f, failed := res.(UploadFailed); failed {
		u.logger.Warn("asset upload failed",
			zap.String("kind", kind),
			zap.String("filename", s.Filename),
			zap.String("reason", f.Reason),
			zap.Error(f.Err))
	}
	return res
}

func (u *Uploader) put(ctx context.Context, s *Staged, kind string) UploadResult {
	f, err := os.Open(s.Path)
	if err != nil {
		return UploadFailed{Reason: "staged file missing", Err: err}
	}
	defer f.Close()

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Upload(), u.logger, "asset upload")
	defer cancel()

	key := path.Join(u.cfg.Folder, kind, uuid.NewString()+filepath.Ext(s.Path))
	if err := u.store.Put(ctx, key, f, &storage.PutOptions{ContentType: s.ContentType}); err != nil {
		return UploadFailed{Reason: "storage write failed", Err: err}
	}
	return UploadedAsset{URL: u.store.URL(key), ID: key}
}

// Remove deletes a stored asset by ID.
func (u *Uploader) Remove(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return u.store.Delete(ctx, id)
}

// Discard removes a staged file without uploading it. Safe to call more
// than once and with nil.
func (u *Uploader) Discard(s *Staged) {
	if s == nil {
		return
	}
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		u.logger.Warn("failed to remove staged upload",
			zap.String("path", s.Path),
			zap.Error(err))
	}
}

// Sweep removes staged files older than maxAge, left behind by requests that
// died mid-upload. It returns how many files were removed.
func (u *Uploader) Sweep(maxAge time.Duration) (int, error) {
	matches, err := filepath.Glob(filepath.Join(u.cfg.TempDir, stagePattern))
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(m); err != nil {
			u.logger.Warn("failed to sweep staged upload", zap.String("path", m), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
