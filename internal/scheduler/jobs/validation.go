package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/walkforward/internal/contracts"
	"github.com/wonny/walkforward/pkg/logger"
)

// Runner runs one validation pass (validation.Suite 또는 메트릭 래퍼)
type Runner interface {
	Run(ctx context.Context, asOf time.Time) (*contracts.ScoreTable, error)
}

// ValidationJob runs the walk-forward validation suite on a schedule
// Schedule: 기본 화요일 06:00 (주간 경기 종료 후 데이터 갱신 이후)
type ValidationJob struct {
	runner   Runner
	schedule string
	logger   *logger.Logger
	now      func() time.Time
}

// NewValidationJob creates a new validation job
func NewValidationJob(runner Runner, schedule string, log *logger.Logger) *ValidationJob {
	return &ValidationJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *ValidationJob) Name() string {
	return "walkforward_validation"
}

// Schedule returns the cron schedule (with seconds)
func (j *ValidationJob) Schedule() string {
	return j.schedule
}

// Run executes one validation pass stamped with the current time
func (j *ValidationJob) Run(ctx context.Context) error {
	asOf := j.now()
	j.logger.WithField("as_of", asOf).Info("Starting scheduled validation run")

	table, err := j.runner.Run(ctx, asOf)
	if err != nil {
		return fmt.Errorf("validation run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":  table.RunID,
		"columns": len(table.Columns),
		"steps":   len(table.Steps),
	}).Info("Scheduled validation run finished")

	return nil
}
