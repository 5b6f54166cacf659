// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/playtweet/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// StagedFileSweeper removes staged upload files older than a given age.
type StagedFileSweeper interface {
	Sweep(maxAge time.Duration) (int, error)
}

// AuditPruner deletes audit events created before a cutoff.
type AuditPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UploadSweepJob creates a job that removes staged upload files left behind
// by requests that never reached their cleanup step.
func UploadSweepJob(sweeper StagedFileSweeper, maxAge time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "upload-temp-sweep",
		Interval: 15 * time.Minute,
		Run: func(ctx context.Context) error {
			removed, err := sweeper.Sweep(maxAge)
			if err != nil {
				return err
			}
			if removed > 0 {
				logger.Info("swept stale upload files",
					zap.Int("removed", removed),
					zap.Duration("max_age", maxAge))
			}
			return nil
		},
	}
}

// AuditRetentionJob creates a job that deletes audit events older than retention.
func AuditRetentionJob(pruner AuditPruner, retention time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "audit-retention",
		Interval: 6 * time.Hour,
		Run: func(ctx context.Context) error {
			ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Batch(), logger, "audit retention")
			defer cancel()

			cutoff := time.Now().Add(-retention)
			deleted, err := pruner.DeleteBefore(ctx, cutoff)
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("pruned audit events",
					zap.Int64("deleted", deleted),
					zap.Time("cutoff", cutoff))
			}
			return nil
		},
	}
}
