package models

import "github.com/wonny/walkforward/internal/contracts"

// MeanBaseline 학습 타깃 평균을 그대로 예측하는 기준 모델
type MeanBaseline struct {
	numCols int
	value   float64
	fitted  bool
}

// NewMeanBaseline 기준 모델 생성
func NewMeanBaseline() *MeanBaseline {
	return &MeanBaseline{}
}

// Fit 타깃 평균 저장
func (m *MeanBaseline) Fit(X contracts.Frame, y []float64) error {
	if err := checkTrainingShape(X, y); err != nil {
		return err
	}
	m.numCols = X.NumCols()
	m.value = mean(y)
	m.fitted = true
	return nil
}

// Predict 모든 행에 평균값 반환
func (m *MeanBaseline) Predict(X contracts.Frame) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkPredictShape(X, m.numCols); err != nil {
		return nil, err
	}
	preds := make([]float64, X.NumRows())
	for i := range preds {
		preds[i] = m.value
	}
	return preds, nil
}
