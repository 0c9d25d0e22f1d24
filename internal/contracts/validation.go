package contracts

import (
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// Split Bundle
// =============================================================================

// Encoding 범주형 피처 인코딩 방식
type Encoding int

const (
	// EncodingNative 범주형 값을 코드 열 하나로 유지 (트리 계열)
	EncodingNative Encoding = iota
	// EncodingOneHot 범주별 0/1 지시 열로 펼침 (선형 계열)
	EncodingOneHot
)

// String 인코딩 이름
func (e Encoding) String() string {
	switch e {
	case EncodingOneHot:
		return "onehot"
	default:
		return "native"
	}
}

// ParseEncoding 인코딩 이름 파싱
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "native", "":
		return EncodingNative, nil
	case "onehot", "one_hot", "one-hot":
		return EncodingOneHot, nil
	default:
		return EncodingNative, fmt.Errorf("unknown encoding %q", s)
	}
}

// Frame 이름 있는 열을 가진 피처 행렬
type Frame struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

// NumRows 행 수
func (f Frame) NumRows() int { return len(f.Rows) }

// NumCols 열 수
func (f Frame) NumCols() int { return len(f.Columns) }

// Validate 모든 행의 길이가 열 수와 같은지
func (f Frame) Validate() error {
	for i, row := range f.Rows {
		if len(row) != len(f.Columns) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(f.Columns))
		}
	}
	return nil
}

// SplitBundle 한 시점의 학습/평가 분할
type SplitBundle struct {
	Step     TimeStep  `json:"step"`
	HeldOut  int       `json:"held_out"`
	Encoding Encoding  `json:"encoding"`
	TrainX   Frame     `json:"train_x"`
	TrainY   []float64 `json:"train_y"`
	TestX    Frame     `json:"test_x"`
	TestY    []float64 `json:"test_y"`
	TestIDs  []string  `json:"test_ids"`
}

// Validate 분할 형태 검증
func (b *SplitBundle) Validate() error {
	if err := b.TrainX.Validate(); err != nil {
		return fmt.Errorf("train features: %w", err)
	}
	if err := b.TestX.Validate(); err != nil {
		return fmt.Errorf("test features: %w", err)
	}
	if b.TrainX.NumRows() != len(b.TrainY) {
		return fmt.Errorf("train rows %d != train targets %d", b.TrainX.NumRows(), len(b.TrainY))
	}
	if b.TestX.NumRows() != len(b.TestY) {
		return fmt.Errorf("test rows %d != test targets %d", b.TestX.NumRows(), len(b.TestY))
	}
	if len(b.TestIDs) != len(b.TestY) {
		return fmt.Errorf("test ids %d != test targets %d", len(b.TestIDs), len(b.TestY))
	}
	if b.TrainX.NumCols() != b.TestX.NumCols() {
		return fmt.Errorf("train has %d columns, test has %d", b.TrainX.NumCols(), b.TestX.NumCols())
	}
	return nil
}

// =============================================================================
// Step Results & Scores
// =============================================================================

// StepResult 한 시점의 예측/정답/오차
type StepResult struct {
	Step        TimeStep  `json:"step"`
	Predictions []float64 `json:"predictions"`
	Truth       []float64 `json:"truth"`
	RMSE        float64   `json:"rmse"`
}

// ScoreSeries 모델 하나의 시점별 RMSE
type ScoreSeries struct {
	Model  string     `json:"model"`
	Steps  []TimeStep `json:"steps"`
	Scores []float64  `json:"scores"`
}

// Append 시점 점수 추가
func (s *ScoreSeries) Append(step TimeStep, score float64) {
	s.Steps = append(s.Steps, step)
	s.Scores = append(s.Scores, score)
}

// EnsembleColumn 앙상블 합성 열 이름
const EnsembleColumn = "ensemble"

// ScoreTable 시점 x 모델 RMSE 표
// 모든 열은 Steps 와 같은 행 인덱스를 가진다
type ScoreTable struct {
	RunID   string               `json:"run_id"`
	AsOf    time.Time            `json:"as_of"`
	Steps   []TimeStep           `json:"steps"`
	Columns []string             `json:"columns"`
	Values  map[string][]float64 `json:"values"`
}

// ColumnMean 열 평균
type ColumnMean struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
}

// NewScoreTable 구간을 행 인덱스로 하는 빈 표 생성
func NewScoreTable(h Horizon) *ScoreTable {
	steps := make([]TimeStep, len(h))
	copy(steps, h)
	return &ScoreTable{
		Steps:  steps,
		Values: make(map[string][]float64),
	}
}

// AddSeries 모델 점수 열 추가 (행 인덱스가 정확히 일치해야 함)
func (t *ScoreTable) AddSeries(s ScoreSeries) error {
	if !Horizon(t.Steps).Equal(s.Steps) {
		return fmt.Errorf("series %q steps do not match table index", s.Model)
	}
	return t.AddColumn(s.Model, s.Scores)
}

// AddColumn 열 추가
func (t *ScoreTable) AddColumn(name string, values []float64) error {
	if _, exists := t.Values[name]; exists {
		return fmt.Errorf("duplicate column %q", name)
	}
	if len(values) != len(t.Steps) {
		return fmt.Errorf("column %q has %d rows, expected %d", name, len(values), len(t.Steps))
	}
	col := make([]float64, len(values))
	copy(col, values)
	t.Columns = append(t.Columns, name)
	t.Values[name] = col
	return nil
}

// Value 특정 열/시점 값
func (t *ScoreTable) Value(column string, step TimeStep) (float64, bool) {
	col, ok := t.Values[column]
	if !ok {
		return 0, false
	}
	for i, s := range t.Steps {
		if s == step {
			return col[i], true
		}
	}
	return 0, false
}

// Means 열 순서대로 평균
func (t *ScoreTable) Means() []ColumnMean {
	means := make([]ColumnMean, 0, len(t.Columns))
	for _, name := range t.Columns {
		col := t.Values[name]
		var sum float64
		for _, v := range col {
			sum += v
		}
		m := 0.0
		if len(col) > 0 {
			m = sum / float64(len(col))
		}
		means = append(means, ColumnMean{Column: name, Mean: m})
	}
	return means
}

// =============================================================================
// Feature Importance
// =============================================================================

// ImportanceEntry 피처 하나의 중요도
type ImportanceEntry struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"score"`
}

// ImportanceSnapshot 특정 모델/시점의 피처 중요도 (내림차순)
type ImportanceSnapshot struct {
	RunID   string            `json:"run_id"`
	Model   string            `json:"model"`
	Step    TimeStep          `json:"step"`
	Entries []ImportanceEntry `json:"entries"`
}

// RankImportances 점수 내림차순 정렬 (부호 그대로, 동점은 이름순)
func RankImportances(scores map[string]float64) []ImportanceEntry {
	entries := make([]ImportanceEntry, 0, len(scores))
	for name, score := range scores {
		entries = append(entries, ImportanceEntry{Feature: name, Score: score})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Feature < entries[j].Feature
	})
	return entries
}

// Top 상위 n개
func (s ImportanceSnapshot) Top(n int) []ImportanceEntry {
	if n > len(s.Entries) {
		n = len(s.Entries)
	}
	if n <= 0 {
		return []ImportanceEntry{}
	}
	return s.Entries[:n]
}
