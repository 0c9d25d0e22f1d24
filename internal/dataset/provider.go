package dataset

import (
	"context"
	"fmt"

	"github.com/wonny/walkforward/internal/contracts"
)

// Provider 시점별 학습/평가 분할 공급자
// ⭐ SSOT: 검증 루프는 이 인터페이스로만 데이터를 받는다
type Provider interface {
	GetData(ctx context.Context, step contracts.TimeStep, heldOut int, enc contracts.Encoding) (*contracts.SplitBundle, error)
}

// Versioned 적재된 데이터 내용의 식별자를 제공하는 공급자 (분할 캐시 키에 사용)
type Versioned interface {
	Fingerprint(ctx context.Context) (string, error)
}

// Resetter 실행 사이에 적재 데이터를 버리는 공급자
// 장기 실행 프로세스(스케줄러)에서 매 실행마다 관측치를 다시 읽게 한다
type Resetter interface {
	Reset()
}

// Loader 테이블 적재 함수 (CSV, Postgres 등)
type Loader func(ctx context.Context) (*Table, error)

// TableProvider 첫 호출 시 테이블을 한 번 적재하고 메모리에서 분할
// 단일 실행 흐름 전용 (동시 호출 보호 없음)
type TableProvider struct {
	load  Loader
	table *Table
}

// NewTableProvider 적재 함수로 공급자 생성
func NewTableProvider(load Loader) *TableProvider {
	return &TableProvider{load: load}
}

// NewStaticProvider 이미 적재된 테이블로 공급자 생성
func NewStaticProvider(table *Table) *TableProvider {
	return &TableProvider{table: table}
}

// GetData 분할 반환 (적재/분할 실패는 모두 ErrDataFault)
func (p *TableProvider) GetData(ctx context.Context, step contracts.TimeStep, heldOut int, enc contracts.Encoding) (*contracts.SplitBundle, error) {
	table, err := p.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return table.Split(step, heldOut, enc)
}

// Fingerprint 적재된 테이블의 내용 해시
func (p *TableProvider) Fingerprint(ctx context.Context) (string, error) {
	table, err := p.ensure(ctx)
	if err != nil {
		return "", err
	}
	return table.Fingerprint(), nil
}

// Reset 다음 호출에서 다시 적재 (적재 함수가 없는 고정 테이블은 유지)
func (p *TableProvider) Reset() {
	if p.load != nil {
		p.table = nil
	}
}

func (p *TableProvider) ensure(ctx context.Context) (*Table, error) {
	if p.table != nil {
		return p.table, nil
	}
	if p.load == nil {
		return nil, fmt.Errorf("%w: provider has no loader", contracts.ErrDataFault)
	}
	table, err := p.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load observations: %w", contracts.ErrDataFault, err)
	}
	p.table = table
	return table, nil
}
