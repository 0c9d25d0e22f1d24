package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/walkforward/internal/contracts"
	"github.com/wonny/walkforward/internal/models"
)

// =============================================================================
// Importance Reporter
// =============================================================================

// ImportanceReporter 지정 시점에서 피처 중요도 스냅샷 기록
type ImportanceReporter struct {
	steps    contracts.StepSet
	topN     int
	sink     contracts.ReportSink
	recorder Recorder
	log      zerolog.Logger
}

// NewImportanceReporter 리포터 생성
func NewImportanceReporter(steps []contracts.TimeStep, topN int, sink contracts.ReportSink, recorder Recorder, log zerolog.Logger) *ImportanceReporter {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &ImportanceReporter{
		steps:    contracts.NewStepSet(steps...),
		topN:     topN,
		sink:     sink,
		recorder: recorder,
		log:      log.With().Str("component", "validation.importance").Logger(),
	}
}

// MaybeReport 기록 시점이면 중요도를 추출해 저장
// 추출 실패는 경고 후 nil 반환, 저장 실패만 오류로 반환
func (r *ImportanceReporter) MaybeReport(ctx context.Context, entry models.Entry, model models.Regressor, features []string, step contracts.TimeStep) error {
	if !r.steps.Has(step) {
		return nil
	}

	snapshot, ok, err := extractImportance(entry, model, features, step)
	if err != nil {
		r.log.Warn().Err(err).
			Str("model", entry.Name).
			Int("step", int(step)).
			Msg("feature importance unavailable, skipping snapshot")
		r.recorder.ImportanceFailed(entry.Name)
		return nil
	}
	if !ok {
		return nil
	}
	snapshot.RunID = RunIDFromContext(ctx)

	for rank, imp := range snapshot.Top(r.topN) {
		r.log.Info().
			Str("model", entry.Name).
			Int("step", int(step)).
			Int("rank", rank+1).
			Str("feature", imp.Feature).
			Float64("score", imp.Score).
			Msg("top feature")
	}

	if err := r.sink.PersistSnapshot(ctx, snapshot); err != nil {
		if !errors.Is(err, contracts.ErrPersistenceFault) {
			err = fmt.Errorf("%w: %w", contracts.ErrPersistenceFault, err)
		}
		return fmt.Errorf("importance %s step %d: %w", entry.Name, step, err)
	}
	return nil
}

// extractImportance 계열 태그에 따른 중요도 추출
// 추출 전략이 없는 계열은 (빈 스냅샷, false, nil)
func extractImportance(entry models.Entry, model models.Regressor, features []string, step contracts.TimeStep) (contracts.ImportanceSnapshot, bool, error) {
	var scores map[string]float64

	switch entry.Family {
	case models.FamilyTree:
		scorer, ok := model.(models.FeatureScorer)
		if !ok {
			return contracts.ImportanceSnapshot{}, false, fmt.Errorf("%w: %T does not expose feature scores", contracts.ErrImportanceFault, model)
		}
		s, err := scorer.FeatureScores()
		if err != nil {
			return contracts.ImportanceSnapshot{}, false, fmt.Errorf("%w: %w", contracts.ErrImportanceFault, err)
		}
		scores = s

	case models.FamilyLinear:
		provider, ok := model.(models.CoefficientProvider)
		if !ok {
			return contracts.ImportanceSnapshot{}, false, fmt.Errorf("%w: %T does not expose coefficients", contracts.ErrImportanceFault, model)
		}
		coefs, err := provider.Coefficients()
		if err != nil {
			return contracts.ImportanceSnapshot{}, false, fmt.Errorf("%w: %w", contracts.ErrImportanceFault, err)
		}
		if len(coefs) != len(features) {
			return contracts.ImportanceSnapshot{}, false, fmt.Errorf("%w: %d coefficients for %d features", contracts.ErrImportanceFault, len(coefs), len(features))
		}
		scores = make(map[string]float64, len(coefs))
		for i, c := range coefs {
			scores[features[i]] = c
		}

	default:
		return contracts.ImportanceSnapshot{}, false, nil
	}

	return contracts.ImportanceSnapshot{
		Model:   entry.Name,
		Step:    step,
		Entries: contracts.RankImportances(scores),
	}, true, nil
}
