package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strconv"

	"github.com/wonny/walkforward/internal/contracts"
)

// =============================================================================
// Observations
// =============================================================================

// Observation 한 시점의 관측 행 (예: 선수-주차)
type Observation struct {
	ID          string             `json:"id"`
	Season      int                `json:"season"`
	Step        contracts.TimeStep `json:"step"`
	Target      float64            `json:"target"`
	Numeric     map[string]float64 `json:"numeric"`
	Categorical map[string]string  `json:"categorical"`
}

// before (season, step) 보다 엄격히 이전인지
func (o Observation) before(season int, step contracts.TimeStep) bool {
	return o.Season < season || (o.Season == season && o.Step < step)
}

// Table 적재된 관측치와 고정 스키마
// 열 구성은 전체 테이블 기준으로 한 번 정해지므로 시점이 바뀌어도 동일하다
type Table struct {
	numericCols     []string
	categoricalCols []string
	categories      map[string][]string
	rows            []Observation
}

// NewTable 관측치로 테이블 생성
// 모든 행은 같은 숫자형/범주형 열 집합을 가져야 한다
func NewTable(rows []Observation) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no observations")
	}

	numeric := sortedKeys(rows[0].Numeric)
	categorical := make([]string, 0, len(rows[0].Categorical))
	for k := range rows[0].Categorical {
		categorical = append(categorical, k)
	}
	sort.Strings(categorical)

	distinct := make(map[string]map[string]struct{}, len(categorical))
	for _, c := range categorical {
		distinct[c] = make(map[string]struct{})
	}

	for i, r := range rows {
		if len(r.Numeric) != len(numeric) {
			return nil, fmt.Errorf("row %d (%s): has %d numeric features, expected %d", i, r.ID, len(r.Numeric), len(numeric))
		}
		for _, c := range numeric {
			if _, ok := r.Numeric[c]; !ok {
				return nil, fmt.Errorf("row %d (%s): missing numeric feature %q", i, r.ID, c)
			}
		}
		if len(r.Categorical) != len(categorical) {
			return nil, fmt.Errorf("row %d (%s): has %d categorical features, expected %d", i, r.ID, len(r.Categorical), len(categorical))
		}
		for _, c := range categorical {
			v, ok := r.Categorical[c]
			if !ok {
				return nil, fmt.Errorf("row %d (%s): missing categorical feature %q", i, r.ID, c)
			}
			distinct[c][v] = struct{}{}
		}
	}

	categories := make(map[string][]string, len(categorical))
	for _, c := range categorical {
		vals := make([]string, 0, len(distinct[c]))
		for v := range distinct[c] {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		categories[c] = vals
	}

	return &Table{
		numericCols:     numeric,
		categoricalCols: categorical,
		categories:      categories,
		rows:            rows,
	}, nil
}

// Len 행 수
func (t *Table) Len() int { return len(t.rows) }

// Fingerprint 스키마와 모든 행 내용의 해시
// 파일 경로나 소스 종류가 같아도 내용이 다르면 값이 달라진다
func (t *Table) Fingerprint() string {
	h := sha256.New()
	writeField(h, strconv.Itoa(len(t.numericCols)))
	for _, c := range t.numericCols {
		writeField(h, c)
	}
	writeField(h, strconv.Itoa(len(t.categoricalCols)))
	for _, c := range t.categoricalCols {
		writeField(h, c)
	}

	for _, r := range t.rows {
		writeField(h, r.ID)
		writeField(h, strconv.Itoa(r.Season))
		writeField(h, strconv.Itoa(int(r.Step)))
		writeField(h, strconv.FormatFloat(r.Target, 'g', -1, 64))
		for _, c := range t.numericCols {
			writeField(h, strconv.FormatFloat(r.Numeric[c], 'g', -1, 64))
		}
		for _, c := range t.categoricalCols {
			writeField(h, r.Categorical[c])
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// writeField 길이 접두어로 필드 경계를 고정
func writeField(h hash.Hash, v string) {
	fmt.Fprintf(h, "%d:%s;", len(v), v)
}

// Columns 인코딩별 피처 열 이름
// native: 숫자형 + 범주형 코드 열 / onehot: 숫자형 + "열=값" 지시 열
func (t *Table) Columns(enc contracts.Encoding) []string {
	cols := append([]string(nil), t.numericCols...)
	for _, c := range t.categoricalCols {
		if enc == contracts.EncodingOneHot {
			for _, v := range t.categories[c] {
				cols = append(cols, c+"="+v)
			}
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// Split 워크포워드 분할
// train: (heldOut, step) 이전 모든 행 / test: 정확히 (heldOut, step) 행
func (t *Table) Split(step contracts.TimeStep, heldOut int, enc contracts.Encoding) (*contracts.SplitBundle, error) {
	cols := t.Columns(enc)
	b := &contracts.SplitBundle{
		Step:     step,
		HeldOut:  heldOut,
		Encoding: enc,
		TrainX:   contracts.Frame{Columns: cols},
		TestX:    contracts.Frame{Columns: append([]string(nil), cols...)},
	}

	for _, r := range t.rows {
		switch {
		case r.before(heldOut, step):
			b.TrainX.Rows = append(b.TrainX.Rows, t.encode(r, enc, len(cols)))
			b.TrainY = append(b.TrainY, r.Target)
		case r.Season == heldOut && r.Step == step:
			b.TestX.Rows = append(b.TestX.Rows, t.encode(r, enc, len(cols)))
			b.TestY = append(b.TestY, r.Target)
			b.TestIDs = append(b.TestIDs, r.ID)
		}
	}

	if len(b.TrainY) == 0 {
		return nil, fmt.Errorf("%w: no training rows before season %d step %d", contracts.ErrDataFault, heldOut, step)
	}
	if len(b.TestY) == 0 {
		return nil, fmt.Errorf("%w: no test rows for season %d step %d", contracts.ErrDataFault, heldOut, step)
	}
	return b, nil
}

// encode 행 하나를 인코딩된 피처 벡터로 변환
func (t *Table) encode(r Observation, enc contracts.Encoding, width int) []float64 {
	row := make([]float64, 0, width)
	for _, c := range t.numericCols {
		row = append(row, r.Numeric[c])
	}
	for _, c := range t.categoricalCols {
		value := r.Categorical[c]
		cats := t.categories[c]
		if enc == contracts.EncodingOneHot {
			for _, v := range cats {
				if v == value {
					row = append(row, 1)
				} else {
					row = append(row, 0)
				}
			}
			continue
		}
		row = append(row, float64(sort.SearchStrings(cats, value)))
	}
	return row
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
