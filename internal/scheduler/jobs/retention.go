package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/walkforward/pkg/logger"
)

// RunPruner deletes stored runs older than a cutoff (report.Repository 가 구현)
type RunPruner interface {
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob removes old validation runs from Postgres
type RetentionJob struct {
	pruner    RunPruner
	retention time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// NewRetentionJob creates a new retention job
func NewRetentionJob(pruner RunPruner, retention time.Duration, log *logger.Logger) *RetentionJob {
	return &RetentionJob{
		pruner:    pruner,
		retention: retention,
		logger:    log,
		now:       time.Now,
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "run_retention"
}

// Schedule returns the cron schedule (daily 03:30)
func (j *RetentionJob) Schedule() string {
	return "0 30 3 * * *"
}

// Run deletes runs created before now - retention
func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)

	removed, err := j.pruner.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune runs before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	if removed > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": removed,
			"cutoff":  cutoff,
		}).Info("Old validation runs removed")
	}
	return nil
}
