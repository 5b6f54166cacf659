// Package timeouts provides centralized deadlines for backend calls made
// while serving a request or running a background job.
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second  // health probes
	DefaultUpload = 20 * time.Second // one asset store write
	DefaultBatch  = 60 * time.Second // maintenance jobs
)

var mu sync.RWMutex

var (
	ping   = DefaultPing
	upload = DefaultUpload
	batch  = DefaultBatch
)

// Ping returns the timeout for health checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Upload returns the timeout for writing one asset to storage.
func Upload() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return upload
}

// Batch returns the timeout for one run of a maintenance job.
func Batch() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return batch
}

// Config holds timeout configuration values. Zero fields keep the current
// value.
type Config struct {
	Ping   time.Duration
	Upload time.Duration
	Batch  time.Duration
}

// Configure sets custom timeout values.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Upload > 0 {
		upload = cfg.Upload
	}
	if cfg.Batch > 0 {
		batch = cfg.Batch
	}
}

// Reset restores all timeouts to defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	upload = DefaultUpload
	batch = DefaultBatch
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Upload: upload, Batch: batch}
}

// WithTimeout creates a context with timeout. The returned cancel func logs
// a warning when the deadline was hit.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
