package validation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wonny/walkforward/internal/contracts"
	"github.com/wonny/walkforward/internal/dataset"
	"github.com/wonny/walkforward/internal/models"
)

// =============================================================================
// Suite
// =============================================================================

// SuiteConfig 검증 실행 설정
type SuiteConfig struct {
	HeldOutSeason  int
	Horizon        contracts.Horizon
	ReportingSteps []contracts.TimeStep
	ImportanceTopN int
}

// DefaultSuiteConfig 기본 설정 (2016 시즌, 2..36 + 39, 중요도 37/39)
func DefaultSuiteConfig() SuiteConfig {
	return SuiteConfig{
		HeldOutSeason:  2016,
		Horizon:        contracts.DefaultHorizon(),
		ReportingSteps: contracts.DefaultReportingSteps(),
		ImportanceTopN: 5,
	}
}

// Suite 레지스트리 전체 평가 + 앙상블 + 점수표
// ⭐ SSOT: 검증 실행 진입점 (CLI, 스케줄러 모두 Run 호출)
type Suite struct {
	registry  *models.Registry
	provider  dataset.Provider
	evaluator *Evaluator
	sink      contracts.ReportSink
	horizon   contracts.Horizon
	recorder  Recorder
	log       zerolog.Logger
}

// NewSuite 검증 스위트 생성
func NewSuite(registry *models.Registry, provider dataset.Provider, sink contracts.ReportSink, cfg SuiteConfig, recorder Recorder, log zerolog.Logger) (*Suite, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, fmt.Errorf("%w: model registry is empty", contracts.ErrConfigFault)
	}
	if provider == nil || sink == nil {
		return nil, fmt.Errorf("%w: data provider and report sink are required", contracts.ErrConfigFault)
	}
	if err := cfg.Horizon.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", contracts.ErrConfigFault, err)
	}
	if cfg.ImportanceTopN < 0 {
		return nil, fmt.Errorf("%w: importance top-n must not be negative", contracts.ErrConfigFault)
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}

	suiteLog := log.With().Str("component", "validation.suite").Logger()
	for _, step := range cfg.ReportingSteps {
		if !cfg.Horizon.Contains(step) {
			suiteLog.Warn().Int("step", int(step)).Msg("reporting step outside horizon, no snapshot will be taken")
		}
	}

	reporter := NewImportanceReporter(cfg.ReportingSteps, cfg.ImportanceTopN, sink, recorder, log)
	return &Suite{
		registry:  registry,
		provider:  provider,
		evaluator: NewEvaluator(provider, cfg.Horizon, cfg.HeldOutSeason, reporter, recorder, log),
		sink:      sink,
		horizon:   cfg.Horizon,
		recorder:  recorder,
		log:       suiteLog,
	}, nil
}

// Run 전체 검증 실행
// asOf 는 실행 기록에만 남고 평가에는 영향을 주지 않는다.
// 치명 오류 시 점수표를 만들지 않으며 아무것도 저장하지 않는다.
func (s *Suite) Run(ctx context.Context, asOf time.Time) (*contracts.ScoreTable, error) {
	members := s.registry.EnsembleMembers()
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: no ensemble members declared", contracts.ErrConfigFault)
	}

	// 매 실행마다 관측치를 새로 읽는다
	if r, ok := s.provider.(dataset.Resetter); ok {
		r.Reset()
	}

	runID := uuid.NewString()
	ctx = WithRunID(ctx, runID)
	start := time.Now()
	s.log.Info().
		Str("run_id", runID).
		Time("as_of", asOf).
		Str("horizon", s.horizon.String()).
		Int("models", s.registry.Len()).
		Strs("ensemble", members).
		Msg("validation run started")

	table := contracts.NewScoreTable(s.horizon)
	table.RunID = runID
	table.AsOf = asOf

	var collected []*ModelRun
	for _, entry := range s.registry.Entries() {
		run, err := s.evaluator.Evaluate(ctx, entry)
		if err != nil {
			return nil, err
		}
		if err := table.AddSeries(run.Series); err != nil {
			return nil, fmt.Errorf("assemble score table: %w", err)
		}
		if entry.Ensemble {
			collected = append(collected, run)
		}
	}

	ensemble, err := BuildEnsemble(s.horizon, len(members), collected)
	if err != nil {
		return nil, err
	}
	if err := table.AddSeries(ensemble); err != nil {
		return nil, fmt.Errorf("assemble score table: %w", err)
	}

	for _, m := range table.Means() {
		s.recorder.ObserveMean(m.Column, m.Mean)
		s.log.Info().
			Str("run_id", runID).
			Str("column", m.Column).
			Float64("mean_rmse", m.Mean).
			Msg("mean rmse")
	}

	if err := s.sink.PersistTable(ctx, table); err != nil {
		return nil, persistenceFault("score table", err)
	}
	if err := s.sink.RenderChart(ctx, table); err != nil {
		return nil, persistenceFault("score chart", err)
	}

	s.log.Info().
		Str("run_id", runID).
		Dur("elapsed", time.Since(start)).
		Msg("validation run completed")

	return table, nil
}

// =============================================================================
// Ensemble
// =============================================================================

// BuildEnsemble 구성 모델 예측의 원소별 평균으로 앙상블 점수 계산
// 나누는 수는 수집된 구성 모델 수이며 선언된 수와 같아야 한다.
// 정답은 마지막 구성 모델의 것을 쓰되 모든 구성 모델의 정답이 같은지 확인한다.
func BuildEnsemble(horizon contracts.Horizon, declared int, runs []*ModelRun) (contracts.ScoreSeries, error) {
	series := contracts.ScoreSeries{Model: contracts.EnsembleColumn}

	if declared == 0 || len(runs) == 0 {
		return series, fmt.Errorf("%w: ensemble has no contributing predictions", contracts.ErrConfigFault)
	}
	if len(runs) != declared {
		return series, fmt.Errorf("%w: ensemble declares %d members but %d were collected", contracts.ErrConfigFault, declared, len(runs))
	}
	for _, run := range runs {
		if len(run.Results) != len(horizon) {
			return series, fmt.Errorf("%w: member %s has %d steps, horizon has %d", contracts.ErrConfigFault, run.Model, len(run.Results), len(horizon))
		}
	}

	last := runs[len(runs)-1]
	divisor := float64(len(runs))

	for i, step := range horizon {
		truth := last.Results[i].Truth
		sum := make([]float64, len(truth))

		for _, run := range runs {
			res := run.Results[i]
			if res.Step != step {
				return series, fmt.Errorf("%w: member %s row %d is step %d, expected %d", contracts.ErrConfigFault, run.Model, i, res.Step, step)
			}
			if !equalFloats(res.Truth, truth) {
				return series, fmt.Errorf("%w: %w: step %d, %s vs %s", contracts.ErrDataFault, contracts.ErrTruthMismatch, step, run.Model, last.Model)
			}
			if len(res.Predictions) != len(truth) {
				return series, fmt.Errorf("%w: member %s step %d has %d predictions for %d rows", contracts.ErrDataFault, run.Model, step, len(res.Predictions), len(truth))
			}
			for j, p := range res.Predictions {
				sum[j] += p
			}
		}

		for j := range sum {
			sum[j] /= divisor
		}
		rmse, err := RMSE(sum, truth)
		if err != nil {
			return series, fmt.Errorf("ensemble step %d: %w", step, err)
		}
		series.Append(step, rmse)
	}

	return series, nil
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func persistenceFault(what string, err error) error {
	if errors.Is(err, contracts.ErrPersistenceFault) {
		return fmt.Errorf("persist %s: %w", what, err)
	}
	return fmt.Errorf("%w: persist %s: %w", contracts.ErrPersistenceFault, what, err)
}
