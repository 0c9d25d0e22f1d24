package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/walkforward/internal/contracts"
)

// ErrRunNotFound 실행 기록 없음
var ErrRunNotFound = errors.New("validation run not found")

// Schema validation 스키마 DDL (EnsureSchema 에서 실행)
const Schema = `
CREATE SCHEMA IF NOT EXISTS validation;

CREATE TABLE IF NOT EXISTS validation.runs (
	run_id      TEXT PRIMARY KEY,
	as_of       TIMESTAMPTZ NOT NULL,
	steps       INTEGER[] NOT NULL,
	columns     TEXT[] NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS validation.scores (
	run_id  TEXT NOT NULL REFERENCES validation.runs(run_id) ON DELETE CASCADE,
	step    INTEGER NOT NULL,
	model   TEXT NOT NULL,
	rmse    DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, step, model)
);

CREATE TABLE IF NOT EXISTS validation.importances (
	run_id   TEXT NOT NULL REFERENCES validation.runs(run_id) ON DELETE CASCADE,
	model    TEXT NOT NULL,
	step     INTEGER NOT NULL,
	rank     INTEGER NOT NULL,
	feature  TEXT NOT NULL,
	score    DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, model, step, rank)
);
`

// RunSummary 실행 요약
type RunSummary struct {
	RunID     string               `json:"run_id"`
	AsOf      time.Time            `json:"as_of"`
	Steps     []contracts.TimeStep `json:"steps"`
	Columns   []string             `json:"columns"`
	CreatedAt time.Time            `json:"created_at"`
}

// Repository 검증 결과 Postgres 저장소
// 스냅샷은 실행 ID 별로 보관했다가 점수표와 같은 트랜잭션으로 기록한다
// (치명 오류로 끝난 실행은 DB 에 남지 않음)
type Repository struct {
	pool *pgxpool.Pool

	mu      sync.Mutex
	pending map[string][]contracts.ImportanceSnapshot
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool:    pool,
		pending: make(map[string][]contracts.ImportanceSnapshot),
	}
}

// EnsureSchema 스키마/테이블 생성
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("%w: ensure schema: %w", contracts.ErrPersistenceFault, err)
	}
	return nil
}

// =============================================================================
// ReportSink
// =============================================================================

// PersistSnapshot 스냅샷 보관 (PersistTable 에서 기록)
func (r *Repository) PersistSnapshot(_ context.Context, snapshot contracts.ImportanceSnapshot) error {
	if snapshot.RunID == "" {
		return fmt.Errorf("%w: snapshot %s step %d has no run id", contracts.ErrPersistenceFault, snapshot.Model, snapshot.Step)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[snapshot.RunID] = append(r.pending[snapshot.RunID], snapshot)
	return nil
}

// PersistTable 실행/점수/보관된 스냅샷을 한 트랜잭션으로 기록
func (r *Repository) PersistTable(ctx context.Context, table *contracts.ScoreTable) error {
	// 실행은 순차적이므로 다른 실행 ID 의 보관분은 실패한 실행의 잔여물이다
	r.mu.Lock()
	snapshots := r.pending[table.RunID]
	r.pending = make(map[string][]contracts.ImportanceSnapshot)
	r.mu.Unlock()

	steps := make([]int32, len(table.Steps))
	for i, s := range table.Steps {
		steps[i] = int32(s)
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO validation.runs (run_id, as_of, steps, columns)
			VALUES ($1, $2, $3, $4)`,
			table.RunID, table.AsOf, steps, table.Columns,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		batch := &pgx.Batch{}
		for _, col := range table.Columns {
			for i, step := range table.Steps {
				batch.Queue(`
					INSERT INTO validation.scores (run_id, step, model, rmse)
					VALUES ($1, $2, $3, $4)`,
					table.RunID, int(step), col, table.Values[col][i])
			}
		}
		for _, snap := range snapshots {
			for rank, e := range snap.Entries {
				batch.Queue(`
					INSERT INTO validation.importances (run_id, model, step, rank, feature, score)
					VALUES ($1, $2, $3, $4, $5, $6)`,
					table.RunID, snap.Model, int(snap.Step), rank+1, e.Feature, e.Score)
			}
		}

		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("%w: run %s: %w", contracts.ErrPersistenceFault, table.RunID, err)
	}
	return nil
}

// RenderChart DB 저장소는 차트를 만들지 않음
func (r *Repository) RenderChart(context.Context, *contracts.ScoreTable) error {
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// LatestRun 가장 최근 실행
func (r *Repository) LatestRun(ctx context.Context) (*RunSummary, error) {
	query := `
		SELECT run_id, as_of, steps, columns, created_at
		FROM validation.runs
		ORDER BY created_at DESC
		LIMIT 1`

	return r.scanRun(r.pool.QueryRow(ctx, query))
}

// GetRun 실행 ID 로 조회
func (r *Repository) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	query := `
		SELECT run_id, as_of, steps, columns, created_at
		FROM validation.runs
		WHERE run_id = $1`

	return r.scanRun(r.pool.QueryRow(ctx, query, runID))
}

func (r *Repository) scanRun(row pgx.Row) (*RunSummary, error) {
	var (
		s     RunSummary
		steps []int32
	)
	if err := row.Scan(&s.RunID, &s.AsOf, &steps, &s.Columns, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	s.Steps = make([]contracts.TimeStep, len(steps))
	for i, v := range steps {
		s.Steps[i] = contracts.TimeStep(v)
	}
	return &s, nil
}

// GetScores 실행의 점수표 복원 (열 순서는 실행 당시 순서)
func (r *Repository) GetScores(ctx context.Context, runID string) (*contracts.ScoreTable, error) {
	run, err := r.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT step, model, rmse
		FROM validation.scores
		WHERE run_id = $1`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cells := make(map[string]map[contracts.TimeStep]float64, len(run.Columns))
	for rows.Next() {
		var (
			step  int
			model string
			rmse  float64
		)
		if err := rows.Scan(&step, &model, &rmse); err != nil {
			return nil, err
		}
		if cells[model] == nil {
			cells[model] = make(map[contracts.TimeStep]float64)
		}
		cells[model][contracts.TimeStep(step)] = rmse
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	table := contracts.NewScoreTable(run.Steps)
	table.RunID = run.RunID
	table.AsOf = run.AsOf
	for _, col := range run.Columns {
		values := make([]float64, len(run.Steps))
		for i, step := range run.Steps {
			v, ok := cells[col][step]
			if !ok {
				return nil, fmt.Errorf("run %s: missing score %s step %d", runID, col, step)
			}
			values[i] = v
		}
		if err := table.AddColumn(col, values); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// GetImportances 실행의 모든 중요도 스냅샷 (모델, 시점, 순위 순)
func (r *Repository) GetImportances(ctx context.Context, runID string) ([]contracts.ImportanceSnapshot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT model, step, feature, score
		FROM validation.importances
		WHERE run_id = $1
		ORDER BY model, step, rank`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []contracts.ImportanceSnapshot
	for rows.Next() {
		var (
			model string
			step  int
			e     contracts.ImportanceEntry
		)
		if err := rows.Scan(&model, &step, &e.Feature, &e.Score); err != nil {
			return nil, err
		}
		n := len(snapshots)
		if n == 0 || snapshots[n-1].Model != model || snapshots[n-1].Step != contracts.TimeStep(step) {
			snapshots = append(snapshots, contracts.ImportanceSnapshot{
				RunID: runID,
				Model: model,
				Step:  contracts.TimeStep(step),
			})
			n++
		}
		snapshots[n-1].Entries = append(snapshots[n-1].Entries, e)
	}
	return snapshots, rows.Err()
}

// DeleteRunsBefore cutoff 이전에 생성된 실행 삭제 (점수/중요도는 CASCADE)
func (r *Repository) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM validation.runs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
