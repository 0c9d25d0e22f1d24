package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/walkforward/internal/contracts"
	"github.com/wonny/walkforward/internal/dataset"
	"github.com/wonny/walkforward/internal/models"
)

// =============================================================================
// Step Evaluator
// =============================================================================

// ModelRun 모델 하나의 워크포워드 결과
// Results 는 구간 선언 순서와 같다
type ModelRun struct {
	Model   string
	Results []contracts.StepResult
	Series  contracts.ScoreSeries
}

// Evaluator 시점별 학습/예측/RMSE 루프
// ⭐ SSOT: 분할 요청과 학습은 여기서만
type Evaluator struct {
	provider dataset.Provider
	horizon  contracts.Horizon
	heldOut  int
	reporter *ImportanceReporter
	recorder Recorder
	log      zerolog.Logger
}

// NewEvaluator 평가기 생성
func NewEvaluator(provider dataset.Provider, horizon contracts.Horizon, heldOut int, reporter *ImportanceReporter, recorder Recorder, log zerolog.Logger) *Evaluator {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Evaluator{
		provider: provider,
		horizon:  horizon,
		heldOut:  heldOut,
		reporter: reporter,
		recorder: recorder,
		log:      log.With().Str("component", "validation.evaluator").Logger(),
	}
}

// Evaluate 구간의 모든 시점에서 모델 평가
// 시점마다 새 인스턴스를 만들어 해당 시점 학습 구간으로만 학습한다.
// 분할/학습/예측 오류와 중요도 저장 오류는 즉시 중단, 중요도 추출 오류만 경고 후 계속.
func (e *Evaluator) Evaluate(ctx context.Context, entry models.Entry) (*ModelRun, error) {
	run := &ModelRun{
		Model:   entry.Name,
		Results: make([]contracts.StepResult, 0, len(e.horizon)),
		Series:  contracts.ScoreSeries{Model: entry.Name},
	}

	for _, step := range e.horizon {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := e.evaluateStep(ctx, entry, step)
		if err != nil {
			return nil, err
		}

		run.Results = append(run.Results, *result)
		run.Series.Append(step, result.RMSE)
		e.recorder.ObserveStep(entry.Name, int(step), result.RMSE)
	}

	e.log.Info().
		Str("model", entry.Name).
		Int("steps", len(run.Results)).
		Msg("model evaluated")

	return run, nil
}

// evaluateStep 한 시점 평가
func (e *Evaluator) evaluateStep(ctx context.Context, entry models.Entry, step contracts.TimeStep) (*contracts.StepResult, error) {
	bundle, err := e.provider.GetData(ctx, step, e.heldOut, entry.Encoding)
	if err != nil {
		if !errors.Is(err, contracts.ErrDataFault) {
			err = fmt.Errorf("%w: %w", contracts.ErrDataFault, err)
		}
		return nil, fmt.Errorf("model %s step %d: %w", entry.Name, step, err)
	}
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("model %s step %d: %w: %w", entry.Name, step, contracts.ErrDataFault, err)
	}

	model := entry.New()
	if model == nil {
		return nil, fmt.Errorf("%w: model %s factory returned nil", contracts.ErrConfigFault, entry.Name)
	}

	if err := model.Fit(bundle.TrainX, bundle.TrainY); err != nil {
		return nil, fmt.Errorf("model %s step %d: fit: %w", entry.Name, step, err)
	}
	pred, err := model.Predict(bundle.TestX)
	if err != nil {
		return nil, fmt.Errorf("model %s step %d: predict: %w", entry.Name, step, err)
	}

	rmse, err := RMSE(pred, bundle.TestY)
	if err != nil {
		return nil, fmt.Errorf("model %s step %d: %w", entry.Name, step, err)
	}

	e.log.Debug().
		Str("model", entry.Name).
		Int("step", int(step)).
		Int("train_rows", len(bundle.TrainY)).
		Int("test_rows", len(bundle.TestY)).
		Float64("rmse", rmse).
		Msg("step evaluated")

	if e.reporter != nil {
		if err := e.reporter.MaybeReport(ctx, entry, model, bundle.TrainX.Columns, step); err != nil {
			return nil, err
		}
	}

	return &contracts.StepResult{
		Step:        step,
		Predictions: pred,
		Truth:       append([]float64(nil), bundle.TestY...),
		RMSE:        rmse,
	}, nil
}
