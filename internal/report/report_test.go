package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/walkforward/internal/contracts"
)

func sampleTable(t *testing.T) *contracts.ScoreTable {
	t.Helper()
	table := contracts.NewScoreTable(contracts.Horizon{2, 3, 39})
	table.RunID = "run-1"
	table.AsOf = time.Date(2016, 12, 20, 6, 0, 0, 0, time.UTC)
	require.NoError(t, table.AddColumn("xgb", []float64{4.5, 4.25, 3.75}))
	require.NoError(t, table.AddColumn("linear", []float64{5, 4.5, 4}))
	require.NoError(t, table.AddColumn(contracts.EnsembleColumn, []float64{4.5, 4, 3.5}))
	return table
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestFileSink_PersistTable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewFileSink(dir, zerolog.Nop())

	require.NoError(t, sink.PersistTable(context.Background(), sampleTable(t)))

	records := readCSV(t, filepath.Join(dir, ScoresFile))
	assert.Equal(t, [][]string{
		{"step", "xgb", "linear", "ensemble"},
		{"2", "4.5", "5", "4.5"},
		{"3", "4.25", "4.5", "4"},
		{"39", "3.75", "4", "3.5"},
	}, records)
}

func TestFileSink_PersistSnapshot(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, zerolog.Nop())

	snap := contracts.ImportanceSnapshot{
		RunID: "run-1",
		Model: "linear",
		Step:  39,
		Entries: []contracts.ImportanceEntry{
			{Feature: "targets", Score: 1.5},
			{Feature: "team=NE", Score: -0.25},
		},
	}
	require.NoError(t, sink.PersistSnapshot(context.Background(), snap))

	assert.Equal(t, "linear_imps_39.csv", SnapshotFile("linear", 39))
	records := readCSV(t, filepath.Join(dir, "linear_imps_39.csv"))
	assert.Equal(t, [][]string{
		{"feature", "importance"},
		{"targets", "1.5"},
		{"team=NE", "-0.25"},
	}, records)
}

func TestFileSink_RenderChart(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, zerolog.Nop())

	require.NoError(t, sink.RenderChart(context.Background(), sampleTable(t)))

	data, err := os.ReadFile(filepath.Join(dir, ChartFile))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "chart should be a PNG")
}

func TestRenderScores_FlatSingleStep(t *testing.T) {
	table := contracts.NewScoreTable(contracts.Horizon{39})
	require.NoError(t, table.AddColumn("xgb", []float64{1}))
	require.NoError(t, table.AddColumn(contracts.EnsembleColumn, []float64{1}))

	var buf bytes.Buffer
	assert.NoError(t, renderScores(table, &buf))
	assert.NotZero(t, buf.Len())

	assert.Error(t, renderScores(contracts.NewScoreTable(contracts.Horizon{2}), &buf))
}

func TestFileSink_WriteFailureIsPersistenceFault(t *testing.T) {
	// 디렉터리 자리에 파일이 있으면 생성 실패
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	sink := NewFileSink(filepath.Join(blocker, "out"), zerolog.Nop())

	err := sink.PersistTable(context.Background(), sampleTable(t))
	assert.ErrorIs(t, err, contracts.ErrPersistenceFault)

	err = sink.RenderChart(context.Background(), sampleTable(t))
	assert.ErrorIs(t, err, contracts.ErrPersistenceFault)
}

// recordingSink 호출 순서 기록
type recordingSink struct {
	name  string
	calls *[]string
	err   error
}

func (s recordingSink) PersistTable(context.Context, *contracts.ScoreTable) error {
	*s.calls = append(*s.calls, s.name+":table")
	return s.err
}

func (s recordingSink) PersistSnapshot(context.Context, contracts.ImportanceSnapshot) error {
	*s.calls = append(*s.calls, s.name+":snapshot")
	return s.err
}

func (s recordingSink) RenderChart(context.Context, *contracts.ScoreTable) error {
	*s.calls = append(*s.calls, s.name+":chart")
	return s.err
}

func TestMultiSink(t *testing.T) {
	var calls []string
	multi := MultiSink{
		recordingSink{name: "file", calls: &calls},
		recordingSink{name: "db", calls: &calls},
	}
	ctx := context.Background()

	require.NoError(t, multi.PersistSnapshot(ctx, contracts.ImportanceSnapshot{}))
	require.NoError(t, multi.PersistTable(ctx, sampleTable(t)))
	require.NoError(t, multi.RenderChart(ctx, sampleTable(t)))

	assert.Equal(t, []string{
		"file:snapshot", "db:snapshot",
		"file:table", "db:table",
		"file:chart", "db:chart",
	}, calls)
}

func TestMultiSink_StopsAtFirstError(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	multi := MultiSink{
		recordingSink{name: "file", calls: &calls, err: boom},
		recordingSink{name: "db", calls: &calls},
	}

	err := multi.PersistTable(context.Background(), sampleTable(t))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"file:table"}, calls)
}

func TestRepository_SnapshotWithoutRunID(t *testing.T) {
	repo := NewRepository(nil)

	err := repo.PersistSnapshot(context.Background(), contracts.ImportanceSnapshot{Model: "xgb", Step: 39})
	assert.ErrorIs(t, err, contracts.ErrPersistenceFault)

	require.NoError(t, repo.PersistSnapshot(context.Background(), contracts.ImportanceSnapshot{RunID: "r", Model: "xgb", Step: 39}))
	assert.Len(t, repo.pending["r"], 1)
	assert.NoError(t, repo.RenderChart(context.Background(), nil))
}

func TestRepository_RoundTrip(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	table := sampleTable(t)
	table.RunID = "test-" + time.Now().Format("20060102150405.000000000")
	require.NoError(t, repo.PersistSnapshot(ctx, contracts.ImportanceSnapshot{
		RunID:   table.RunID,
		Model:   "xgb",
		Step:    39,
		Entries: []contracts.ImportanceEntry{{Feature: "a", Score: 3}, {Feature: "b", Score: 1}},
	}))
	require.NoError(t, repo.PersistSnapshot(ctx, contracts.ImportanceSnapshot{RunID: "failed-run", Model: "xgb", Step: 39}))
	require.NoError(t, repo.PersistTable(ctx, table))
	assert.Empty(t, repo.pending)
	defer pool.Exec(ctx, "DELETE FROM validation.runs WHERE run_id = $1", table.RunID) //nolint:errcheck

	got, err := repo.GetScores(ctx, table.RunID)
	require.NoError(t, err)
	assert.Equal(t, table.Columns, got.Columns)
	assert.Equal(t, table.Values, got.Values)

	snaps, err := repo.GetImportances(ctx, table.RunID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "a", snaps[0].Entries[0].Feature)

	_, err = repo.GetRun(ctx, "missing-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
