package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/wonny/walkforward/internal/contracts"
)

// 출력 파일 이름
const (
	ScoresFile = "validation_scores.csv"
	ChartFile  = "scores.png"
)

// SnapshotFile (모델, 시점) 중요도 파일 이름
func SnapshotFile(model string, step contracts.TimeStep) string {
	return fmt.Sprintf("%s_imps_%d.csv", model, step)
}

// FileSink 출력 디렉터리에 CSV/PNG 로 결과 저장
// 같은 디렉터리의 이전 실행 결과는 덮어쓴다
type FileSink struct {
	dir string
	log zerolog.Logger
}

// NewFileSink 파일 싱크 생성
func NewFileSink(dir string, log zerolog.Logger) *FileSink {
	return &FileSink{
		dir: dir,
		log: log.With().Str("component", "report.file").Logger(),
	}
}

// Dir 출력 디렉터리
func (s *FileSink) Dir() string { return s.dir }

// PersistTable 점수표 CSV (step, 모델 열..., ensemble)
func (s *FileSink) PersistTable(_ context.Context, table *contracts.ScoreTable) error {
	records := make([][]string, 0, len(table.Steps)+1)
	records = append(records, append([]string{"step"}, table.Columns...))

	for i, step := range table.Steps {
		rec := make([]string, 0, len(table.Columns)+1)
		rec = append(rec, strconv.Itoa(int(step)))
		for _, col := range table.Columns {
			rec = append(rec, formatFloat(table.Values[col][i]))
		}
		records = append(records, rec)
	}

	path := filepath.Join(s.dir, ScoresFile)
	if err := s.writeCSV(path, records); err != nil {
		return err
	}
	s.log.Info().Str("path", path).Int("rows", len(table.Steps)).Msg("score table written")
	return nil
}

// PersistSnapshot 중요도 CSV (feature, importance) 순위 순서
func (s *FileSink) PersistSnapshot(_ context.Context, snapshot contracts.ImportanceSnapshot) error {
	records := make([][]string, 0, len(snapshot.Entries)+1)
	records = append(records, []string{"feature", "importance"})
	for _, e := range snapshot.Entries {
		records = append(records, []string{e.Feature, formatFloat(e.Score)})
	}

	path := filepath.Join(s.dir, SnapshotFile(snapshot.Model, snapshot.Step))
	if err := s.writeCSV(path, records); err != nil {
		return err
	}
	s.log.Debug().Str("path", path).Int("features", len(snapshot.Entries)).Msg("importance snapshot written")
	return nil
}

// RenderChart 점수표 선 그래프 PNG
func (s *FileSink) RenderChart(_ context.Context, table *contracts.ScoreTable) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", contracts.ErrPersistenceFault, s.dir, err)
	}

	path := filepath.Join(s.dir, ChartFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", contracts.ErrPersistenceFault, path, err)
	}

	if err := renderScores(table, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: render %s: %w", contracts.ErrPersistenceFault, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", contracts.ErrPersistenceFault, path, err)
	}

	s.log.Info().Str("path", path).Msg("score chart rendered")
	return nil
}

func (s *FileSink) writeCSV(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", contracts.ErrPersistenceFault, filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", contracts.ErrPersistenceFault, path, err)
	}

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write %s: %w", contracts.ErrPersistenceFault, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", contracts.ErrPersistenceFault, path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
