package report

import (
	"context"

	"github.com/wonny/walkforward/internal/contracts"
)

// MultiSink 여러 싱크에 순서대로 기록 (첫 오류에서 중단)
type MultiSink []contracts.ReportSink

// PersistTable 모든 싱크에 점수표 기록
func (m MultiSink) PersistTable(ctx context.Context, table *contracts.ScoreTable) error {
	for _, s := range m {
		if err := s.PersistTable(ctx, table); err != nil {
			return err
		}
	}
	return nil
}

// PersistSnapshot 모든 싱크에 스냅샷 기록
func (m MultiSink) PersistSnapshot(ctx context.Context, snapshot contracts.ImportanceSnapshot) error {
	for _, s := range m {
		if err := s.PersistSnapshot(ctx, snapshot); err != nil {
			return err
		}
	}
	return nil
}

// RenderChart 모든 싱크에 차트 렌더링
func (m MultiSink) RenderChart(ctx context.Context, table *contracts.ScoreTable) error {
	for _, s := range m {
		if err := s.RenderChart(ctx, table); err != nil {
			return err
		}
	}
	return nil
}
