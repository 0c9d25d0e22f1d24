package contracts

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeStep 검증 구간 내 시점 (주차 번호)
type TimeStep int

// Horizon 선언 순서를 유지하는 검증 시점 목록
// 연속일 필요 없음 (예: 2~36 + 39)
type Horizon []TimeStep

// DefaultHorizon 기본 검증 구간: 2주차~36주차 + 39주차
func DefaultHorizon() Horizon {
	h := make(Horizon, 0, 36)
	for s := TimeStep(2); s <= 36; s++ {
		h = append(h, s)
	}
	return append(h, 39)
}

// DefaultReportingSteps 피처 중요도를 남기는 기본 시점
// 37주차는 기본 구간에 없으므로 실제로는 39주차만 기록된다
func DefaultReportingSteps() []TimeStep {
	return []TimeStep{37, 39}
}

// NewHorizon 시점 목록으로 구간 생성 (오름차순, 중복 없음)
func NewHorizon(steps ...TimeStep) (Horizon, error) {
	h := Horizon(steps)
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// ParseHorizon "2-36,39" 형식의 구간 문자열 파싱
func ParseHorizon(s string) (Horizon, error) {
	steps, err := ParseSteps(s)
	if err != nil {
		return nil, err
	}
	return NewHorizon(steps...)
}

// MaxRangeSteps "a-b" 범위 하나가 펼칠 수 있는 최대 시점 수
const MaxRangeSteps = 1000

// ParseSteps "a-b,c" 형식을 선언 순서대로 펼친다 (검증 없음)
func ParseSteps(s string) ([]TimeStep, error) {
	var steps []TimeStep
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			from, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid step range %q: %w", part, err)
			}
			to, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("invalid step range %q: %w", part, err)
			}
			if to < from {
				return nil, fmt.Errorf("invalid step range %q: end before start", part)
			}
			if to-from >= MaxRangeSteps {
				return nil, fmt.Errorf("invalid step range %q: spans more than %d steps", part, MaxRangeSteps)
			}
			for v := from; v <= to; v++ {
				steps = append(steps, TimeStep(v))
			}
			continue
		}

		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid step %q: %w", part, err)
		}
		steps = append(steps, TimeStep(v))
	}
	return steps, nil
}

// Validate 비어있지 않고 엄격한 오름차순인지 확인
func (h Horizon) Validate() error {
	if len(h) == 0 {
		return fmt.Errorf("horizon is empty")
	}
	for i := 1; i < len(h); i++ {
		if h[i] <= h[i-1] {
			return fmt.Errorf("horizon must be strictly ascending: %d follows %d", h[i], h[i-1])
		}
	}
	return nil
}

// Contains 시점 포함 여부
func (h Horizon) Contains(step TimeStep) bool {
	for _, s := range h {
		if s == step {
			return true
		}
	}
	return false
}

// Equal 동일한 시점, 동일한 순서인지
func (h Horizon) Equal(steps []TimeStep) bool {
	if len(h) != len(steps) {
		return false
	}
	for i := range h {
		if h[i] != steps[i] {
			return false
		}
	}
	return true
}

// String 연속 구간을 압축한 표현 ("2-36,39")
func (h Horizon) String() string {
	var parts []string
	for i := 0; i < len(h); {
		j := i
		for j+1 < len(h) && h[j+1] == h[j]+1 {
			j++
		}
		if j > i {
			parts = append(parts, fmt.Sprintf("%d-%d", h[i], h[j]))
		} else {
			parts = append(parts, strconv.Itoa(int(h[i])))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

// StepSet 시점 집합 (리포팅 시점 판정용)
type StepSet map[TimeStep]struct{}

// NewStepSet 시점 집합 생성
func NewStepSet(steps ...TimeStep) StepSet {
	set := make(StepSet, len(steps))
	for _, s := range steps {
		set[s] = struct{}{}
	}
	return set
}

// Has 집합에 포함되는지
func (s StepSet) Has(step TimeStep) bool {
	_, ok := s[step]
	return ok
}
