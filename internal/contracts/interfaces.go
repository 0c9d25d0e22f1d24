package contracts

import "context"

// ReportSink persists validation outputs
// ⭐ SSOT: 점수표/중요도/차트 저장 인터페이스
// 경로(파일명, 테이블 키)는 구현체가 (모델, 시점) 과 실행 단위로 결정한다
type ReportSink interface {
	PersistTable(ctx context.Context, table *ScoreTable) error
	PersistSnapshot(ctx context.Context, snapshot ImportanceSnapshot) error
	RenderChart(ctx context.Context, table *ScoreTable) error
}
