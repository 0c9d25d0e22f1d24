package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/walkforward/internal/contracts"
	"github.com/wonny/walkforward/pkg/logger"
)

type stubRunner struct {
	asOf time.Time
	err  error
}

func (r *stubRunner) Run(_ context.Context, asOf time.Time) (*contracts.ScoreTable, error) {
	r.asOf = asOf
	if r.err != nil {
		return nil, r.err
	}
	table := contracts.NewScoreTable(contracts.Horizon{39})
	table.RunID = "run-1"
	return table, nil
}

func TestValidationJob(t *testing.T) {
	runner := &stubRunner{}
	job := NewValidationJob(runner, "0 0 6 * * 2", logger.Nop())
	fixed := time.Date(2016, 12, 20, 6, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	assert.Equal(t, "walkforward_validation", job.Name())
	assert.Equal(t, "0 0 6 * * 2", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, fixed, runner.asOf)
}

func TestValidationJob_PropagatesFault(t *testing.T) {
	runner := &stubRunner{err: contracts.ErrDataFault}
	job := NewValidationJob(runner, "@weekly", logger.Nop())

	err := job.Run(context.Background())
	assert.ErrorIs(t, err, contracts.ErrDataFault)
}

type stubPruner struct {
	cutoff  time.Time
	removed int64
	err     error
}

func (p *stubPruner) DeleteRunsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return p.removed, p.err
}

func TestRetentionJob(t *testing.T) {
	pruner := &stubPruner{removed: 3}
	job := NewRetentionJob(pruner, 90*24*time.Hour, logger.Nop())
	now := time.Date(2017, 3, 1, 3, 30, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-90*24*time.Hour), pruner.cutoff)

	pruner.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
}
