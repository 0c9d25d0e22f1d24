package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wonny/walkforward/internal/contracts"
)

// CSVSchema CSV 열 역할 지정
// ID/시즌/시점/타깃/범주형 이외의 모든 열은 숫자형 피처로 취급
type CSVSchema struct {
	IDColumn     string
	SeasonColumn string
	StepColumn   string
	TargetColumn string
	Categorical  []string
}

// DefaultCSVSchema 기본 CSV 스키마
func DefaultCSVSchema() CSVSchema {
	return CSVSchema{
		IDColumn:     "name",
		SeasonColumn: "season",
		StepColumn:   "week",
		TargetColumn: "target",
	}
}

// CSVLoader CSV 파일 적재 함수
func CSVLoader(path string, schema CSVSchema) Loader {
	return func(_ context.Context) (*Table, error) {
		return LoadCSV(path, schema)
	}
}

// LoadCSV CSV 파일을 테이블로 적재 (첫 행은 헤더)
func LoadCSV(path string, schema CSVSchema) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	rows, err := parseRecords(records, schema)
	if err != nil {
		return nil, fmt.Errorf("csv: %s: %w", path, err)
	}
	return NewTable(rows)
}

// parseRecords 헤더 + 레코드를 관측치로 변환
func parseRecords(records [][]string, schema CSVSchema) ([]Observation, error) {
	headers := records[0]
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.TrimSpace(h)] = i
	}

	for _, required := range []string{schema.IDColumn, schema.SeasonColumn, schema.StepColumn, schema.TargetColumn} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	categorical := make(map[string]bool, len(schema.Categorical))
	for _, c := range schema.Categorical {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("missing categorical column %q", c)
		}
		categorical[c] = true
	}

	reserved := map[string]bool{
		schema.IDColumn:     true,
		schema.SeasonColumn: true,
		schema.StepColumn:   true,
		schema.TargetColumn: true,
	}

	rows := make([]Observation, 0, len(records)-1)
	for n, rec := range records[1:] {
		line := n + 2
		season, err := strconv.Atoi(strings.TrimSpace(rec[index[schema.SeasonColumn]]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid %s: %w", line, schema.SeasonColumn, err)
		}
		step, err := strconv.Atoi(strings.TrimSpace(rec[index[schema.StepColumn]]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid %s: %w", line, schema.StepColumn, err)
		}
		target, err := strconv.ParseFloat(strings.TrimSpace(rec[index[schema.TargetColumn]]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid %s: %w", line, schema.TargetColumn, err)
		}

		obs := Observation{
			ID:          rec[index[schema.IDColumn]],
			Season:      season,
			Step:        contracts.TimeStep(step),
			Target:      target,
			Numeric:     make(map[string]float64),
			Categorical: make(map[string]string),
		}
		for i, h := range headers {
			h = strings.TrimSpace(h)
			if reserved[h] {
				continue
			}
			if categorical[h] {
				obs.Categorical[h] = rec[i]
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: column %s: %w", line, h, err)
			}
			obs.Numeric[h] = v
		}
		rows = append(rows, obs)
	}
	return rows, nil
}
