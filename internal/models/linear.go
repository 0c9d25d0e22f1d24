package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/walkforward/internal/contracts"
)

// =============================================================================
// Ridge Regression (standardize -> ridge)
// =============================================================================

// LinearConfig 선형 모델 설정
type LinearConfig struct {
	Alpha float64 // L2 규제 강도 (기본: 1.0)
}

// DefaultLinearConfig 기본 선형 모델 설정
func DefaultLinearConfig() LinearConfig {
	return LinearConfig{Alpha: 1.0}
}

// ErrSingularSystem 정규방정식 해가 없음
var ErrSingularSystem = errors.New("normal equations are singular")

// RidgeRegression 표준화 후 릿지 회귀를 적용하는 파이프라인
// Coefficients 는 표준화된 공간의 계수 (학습 열 순서)
type RidgeRegression struct {
	config LinearConfig

	means     []float64
	scales    []float64
	coef      []float64
	intercept float64
	fitted    bool
}

// NewRidgeRegression 릿지 회귀 생성
func NewRidgeRegression(config LinearConfig) *RidgeRegression {
	return &RidgeRegression{config: config}
}

// Fit 표준화 통계와 계수 학습
func (m *RidgeRegression) Fit(X contracts.Frame, y []float64) error {
	if err := checkTrainingShape(X, y); err != nil {
		return err
	}
	if m.config.Alpha < 0 {
		return fmt.Errorf("alpha must be non-negative, got %v", m.config.Alpha)
	}

	m.fitted = false
	n, p := X.NumRows(), X.NumCols()

	// 열별 평균/표준편차 (분산 0 열은 스케일 1)
	means := make([]float64, p)
	scales := make([]float64, p)
	for j := 0; j < p; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += X.Rows[i][j]
		}
		means[j] = sum / float64(n)

		var sq float64
		for i := 0; i < n; i++ {
			d := X.Rows[i][j] - means[j]
			sq += d * d
		}
		std := math.Sqrt(sq / float64(n))
		if std == 0 {
			std = 1
		}
		scales[j] = std
	}

	yMean := mean(y)

	// (ZᵀZ + αI) β = Zᵀ(y - ȳ)
	a := make([][]float64, p)
	for j := range a {
		a[j] = make([]float64, p)
	}
	b := make([]float64, p)
	z := make([]float64, p)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			z[j] = (X.Rows[i][j] - means[j]) / scales[j]
		}
		r := y[i] - yMean
		for j := 0; j < p; j++ {
			b[j] += z[j] * r
			for k := j; k < p; k++ {
				a[j][k] += z[j] * z[k]
			}
		}
	}
	for j := 0; j < p; j++ {
		for k := 0; k < j; k++ {
			a[j][k] = a[k][j]
		}
		a[j][j] += m.config.Alpha
	}

	coef, err := solveLinearSystem(a, b)
	if err != nil {
		return err
	}

	m.means = means
	m.scales = scales
	m.coef = coef
	m.intercept = yMean
	m.fitted = true
	return nil
}

// Predict 선형 예측
func (m *RidgeRegression) Predict(X contracts.Frame) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkPredictShape(X, len(m.coef)); err != nil {
		return nil, err
	}

	preds := make([]float64, X.NumRows())
	for i, row := range X.Rows {
		v := m.intercept
		for j, x := range row {
			v += m.coef[j] * (x - m.means[j]) / m.scales[j]
		}
		preds[i] = v
	}
	return preds, nil
}

// Coefficients 학습된 계수 복사본
func (m *RidgeRegression) Coefficients() ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(m.coef))
	copy(out, m.coef)
	return out, nil
}

// solveLinearSystem 부분 피벗 가우스 소거 (a, b 는 변경됨)
func solveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, ErrSingularSystem
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			if f == 0 {
				continue
			}
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		v := b[r]
		for c := r + 1; c < n; c++ {
			v -= a[r][c] * x[c]
		}
		x[r] = v / a[r][r]
	}
	return x, nil
}
