package dataset

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/walkforward/internal/contracts"
)

// PostgresSource 관측치 저장소 (validation.observations)
// features jsonb: 숫자/불리언 값은 숫자형, 문자열 값은 범주형 피처
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource 저장소 생성
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Loader 테이블 적재 함수로 노출
func (s *PostgresSource) Loader() Loader {
	return s.Load
}

// Load 전체 관측치 적재
func (s *PostgresSource) Load(ctx context.Context) (*Table, error) {
	query := `
		SELECT row_id, season, step, target, features
		FROM validation.observations
		ORDER BY season, step, row_id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var observations []Observation
	for rows.Next() {
		var (
			o        Observation
			step     int
			features map[string]any
		)
		if err := rows.Scan(&o.ID, &o.Season, &step, &o.Target, &features); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.Step = contracts.TimeStep(step)

		if err := splitFeatures(&o, features); err != nil {
			return nil, fmt.Errorf("observation %s: %w", o.ID, err)
		}
		observations = append(observations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return NewTable(observations)
}

// splitFeatures jsonb 값을 숫자형/범주형으로 분리
func splitFeatures(o *Observation, features map[string]any) error {
	o.Numeric = make(map[string]float64)
	o.Categorical = make(map[string]string)

	for k, v := range features {
		switch val := v.(type) {
		case float64:
			o.Numeric[k] = val
		case bool:
			if val {
				o.Numeric[k] = 1
			} else {
				o.Numeric[k] = 0
			}
		case string:
			o.Categorical[k] = val
		case nil:
			return fmt.Errorf("feature %q is null", k)
		default:
			return fmt.Errorf("feature %q has unsupported type %T", k, v)
		}
	}
	return nil
}
