// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	auditstore "github.com/dalemusser/playtweet/internal/app/store/audit"
	"github.com/dalemusser/playtweet/internal/app/system/media"
	"github.com/dalemusser/playtweet/internal/app/system/tasks"
	"github.com/dalemusser/playtweet/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// stagedFileMaxAge is how long a staged upload may sit in the temp
// directory before the sweep job removes it.
const stagedFileMaxAge = time.Hour

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It applies the backend deadlines and starts the background task runner.
// Returning a non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Upload: appCfg.TimeoutUpload,
		Batch:  appCfg.TimeoutBatch,
	})
	logger.Debug("backend deadlines configured", zap.Any("timeouts", timeouts.Current()))

	uploader, err := newUploader(appCfg, deps, logger)
	if err != nil {
		logger.Error("failed to initialize uploader", zap.Error(err))
		return err
	}

	startTaskRunner(appCfg, deps, uploader, logger)
	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner registers the maintenance jobs and starts them.
func startTaskRunner(appCfg AppConfig, deps DBDeps, uploader *media.Uploader, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	taskRunner.Register(tasks.UploadSweepJob(uploader, stagedFileMaxAge, logger))

	if appCfg.AuditRetention > 0 {
		taskRunner.Register(tasks.AuditRetentionJob(auditstore.New(deps.MongoDatabase), appCfg.AuditRetention, logger))
	}

	taskRunner.Start()
}

// newUploader builds the image uploader over the configured asset store.
func newUploader(appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*media.Uploader, error) {
	return media.New(deps.FileStorage, media.Config{
		Folder:   appCfg.UploadFolder,
		TempDir:  appCfg.UploadTempDir,
		MaxBytes: appCfg.UploadMaxBytes,
	}, logger)
}
