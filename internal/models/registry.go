package models

import (
	"fmt"

	"github.com/wonny/walkforward/internal/contracts"
)

// =============================================================================
// Model Family
// =============================================================================

// Family 모델 계열 태그
// 계열이 인코딩 기본값과 피처 중요도 추출 방식을 결정한다
type Family string

const (
	FamilyTree     Family = "tree"     // 분할 점수 기반 중요도
	FamilyLinear   Family = "linear"   // 계수 기반 중요도
	FamilyBaseline Family = "baseline" // 중요도 없음
)

// ParseFamily 계열 이름 파싱
func ParseFamily(s string) (Family, error) {
	switch Family(s) {
	case FamilyTree, FamilyLinear, FamilyBaseline:
		return Family(s), nil
	default:
		return "", fmt.Errorf("unknown model family %q", s)
	}
}

// DefaultEncoding 계열 기본 인코딩
// 선형 계열은 범주형을 직접 다루지 못하므로 원-핫
func (f Family) DefaultEncoding() contracts.Encoding {
	if f == FamilyLinear {
		return contracts.EncodingOneHot
	}
	return contracts.EncodingNative
}

// =============================================================================
// Registry
// =============================================================================

// Factory 학습 전 모델 인스턴스 생성 함수
type Factory func() Regressor

// Entry 레지스트리 항목
type Entry struct {
	Name     string
	Family   Family
	Encoding contracts.Encoding
	Ensemble bool // 앙상블 평균 참여 여부
	New      Factory
}

// Registry 선언 순서를 유지하는 모델 레지스트리
type Registry struct {
	entries []Entry
}

// NewRegistry 레지스트리 생성 (이름 중복/팩토리 누락 시 오류)
func NewRegistry(entries ...Entry) (*Registry, error) {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("%w: model name is empty", contracts.ErrConfigFault)
		}
		if e.Name == contracts.EnsembleColumn {
			return nil, fmt.Errorf("%w: model name %q is reserved", contracts.ErrConfigFault, e.Name)
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate model %q", contracts.ErrConfigFault, e.Name)
		}
		if e.New == nil {
			return nil, fmt.Errorf("%w: model %q has no factory", contracts.ErrConfigFault, e.Name)
		}
		if _, err := ParseFamily(string(e.Family)); err != nil {
			return nil, fmt.Errorf("%w: model %q: %v", contracts.ErrConfigFault, e.Name, err)
		}
		seen[e.Name] = struct{}{}
	}
	return &Registry{entries: append([]Entry(nil), entries...)}, nil
}

// DefaultRegistry 기본 레지스트리: xgb + linear 앙상블, baseline 비교용
func DefaultRegistry() *Registry {
	treeCfg := DefaultTreeConfig()
	linCfg := DefaultLinearConfig()

	reg, err := NewRegistry(
		Entry{
			Name:     "xgb",
			Family:   FamilyTree,
			Encoding: FamilyTree.DefaultEncoding(),
			Ensemble: true,
			New:      func() Regressor { return NewGradientBoostedTrees(treeCfg) },
		},
		Entry{
			Name:     "linear",
			Family:   FamilyLinear,
			Encoding: FamilyLinear.DefaultEncoding(),
			Ensemble: true,
			New:      func() Regressor { return NewRidgeRegression(linCfg) },
		},
		Entry{
			Name:     "baseline",
			Family:   FamilyBaseline,
			Encoding: FamilyBaseline.DefaultEncoding(),
			New:      func() Regressor { return NewMeanBaseline() },
		},
	)
	if err != nil {
		panic(err) // 정적 정의이므로 발생하지 않음
	}
	return reg
}

// Entries 선언 순서대로 항목 반환
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Get 이름으로 항목 조회
func (r *Registry) Get(name string) (Entry, bool) {
	for _, e := range r.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// EnsembleMembers 앙상블 참여 모델 이름 (선언 순서)
func (r *Registry) EnsembleMembers() []string {
	var names []string
	for _, e := range r.entries {
		if e.Ensemble {
			names = append(names, e.Name)
		}
	}
	return names
}

// Len 항목 수
func (r *Registry) Len() int {
	return len(r.entries)
}
