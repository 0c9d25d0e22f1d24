package models

import (
	"errors"
	"fmt"

	"github.com/wonny/walkforward/internal/contracts"
)

// Regressor 학습/예측 가능한 회귀 모델
// Fit 은 이전 학습 상태를 완전히 덮어쓴다 (증분 학습 아님).
// 인스턴스는 단일 소유자 전용이며 동시 호출을 지원하지 않는다.
type Regressor interface {
	Fit(X contracts.Frame, y []float64) error
	Predict(X contracts.Frame) ([]float64, error)
}

// FeatureScorer 트리 계열 모델의 분할 기반 피처 점수
type FeatureScorer interface {
	FeatureScores() (map[string]float64, error)
}

// CoefficientProvider 선형 계열 모델의 계수 벡터
// 계수 순서는 학습 피처 열 순서와 같다
type CoefficientProvider interface {
	Coefficients() ([]float64, error)
}

var (
	ErrNotFitted     = errors.New("model is not fitted")
	ErrEmptyTraining = errors.New("training set is empty")
)

// checkTrainingShape 학습 입력 형태 검증
func checkTrainingShape(X contracts.Frame, y []float64) error {
	if X.NumRows() == 0 || len(y) == 0 {
		return ErrEmptyTraining
	}
	if X.NumRows() != len(y) {
		return fmt.Errorf("features have %d rows, targets have %d", X.NumRows(), len(y))
	}
	return X.Validate()
}

// checkPredictShape 예측 입력이 학습 열 수와 맞는지
func checkPredictShape(X contracts.Frame, numCols int) error {
	if X.NumCols() != numCols {
		return fmt.Errorf("features have %d columns, model was fitted on %d", X.NumCols(), numCols)
	}
	return X.Validate()
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
