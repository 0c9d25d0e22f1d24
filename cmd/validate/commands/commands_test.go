package commands

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/walkforward/internal/contracts"
	"github.com/wonny/walkforward/internal/dataset"
	"github.com/wonny/walkforward/internal/models"
	"github.com/wonny/walkforward/internal/report"
	"github.com/wonny/walkforward/internal/validation"
	"github.com/wonny/walkforward/pkg/config"
	"github.com/wonny/walkforward/pkg/logger"
	"github.com/wonny/walkforward/pkg/metrics"
)

func TestSuiteConfig(t *testing.T) {
	cfg := &config.Config{
		Validation: config.ValidationConfig{
			HeldOutSeason:  2016,
			Horizon:        "2-4,7",
			ReportingSteps: "4,9",
			ImportanceTopN: 3,
		},
	}

	sc, err := suiteConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, contracts.Horizon{2, 3, 4, 7}, sc.Horizon)
	assert.Equal(t, []contracts.TimeStep{4, 9}, sc.ReportingSteps)
	assert.Equal(t, 2016, sc.HeldOutSeason)
	assert.Equal(t, 3, sc.ImportanceTopN)
}

func TestSuiteConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		horizon string
		steps   string
	}{
		{"descending horizon", "5,3", "3"},
		{"empty horizon", "", "3"},
		{"bad reporting step", "2-4", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Validation: config.ValidationConfig{
				Horizon:        tt.horizon,
				ReportingSteps: tt.steps,
			}}
			_, err := suiteConfig(cfg)
			assert.ErrorIs(t, err, contracts.ErrConfigFault)
		})
	}
}

func TestParseAsOf(t *testing.T) {
	got, err := parseAsOf("2016-12-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2016, 12, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = parseAsOf("12/01/2016")
	assert.Error(t, err)

	now, err := parseAsOf("")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), now, time.Minute)
}

func TestLoadRegistry_Default(t *testing.T) {
	registry, err := loadRegistry("")
	require.NoError(t, err)
	assert.Positive(t, registry.Len())
	assert.NotEmpty(t, registry.EnsembleMembers())
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := loadRegistry("/nonexistent/models.yaml")
	assert.Error(t, err)
}

func TestMeteredRunner_FailedRunDropsPreviousScores(t *testing.T) {
	m := metrics.NewManager()
	m.ObserveStep("xgb", 2, 1.5)
	m.ObserveMean("xgb", 1.5)

	cfg := validation.DefaultSuiteConfig()
	suite, err := validation.NewSuite(models.DefaultRegistry(), dataset.NewTableProvider(nil),
		report.NewFileSink(t.TempDir(), zerolog.Nop()), cfg, m, zerolog.Nop())
	require.NoError(t, err)

	runner := &meteredRunner{suite: suite, metrics: m, log: logger.Nop()}
	_, err = runner.Run(context.Background(), time.Now())
	require.ErrorIs(t, err, contracts.ErrDataFault)

	for _, name := range []string{"walkforward_step_rmse", "walkforward_mean_rmse"} {
		count, err := testutil.GatherAndCount(m.Registry(), name)
		require.NoError(t, err)
		assert.Zero(t, count, name)
	}
	failed, err := testutil.GatherAndCount(m.Registry(), "walkforward_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
}
