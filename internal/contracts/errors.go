package contracts

import "errors"

// =============================================================================
// Validation Faults
// =============================================================================

// 검증 실행 중 발생하는 오류 분류
// ⭐ SSOT: errors.Is 로 분류, 로컬 복구는 ErrImportanceFault 만 허용
var (
	// ErrDataFault 데이터 공급자가 분할을 만들지 못함 (실행 중단)
	ErrDataFault = errors.New("data fault")

	// ErrImportanceFault 피처 중요도 추출 실패 (경고 후 계속)
	ErrImportanceFault = errors.New("importance fault")

	// ErrConfigFault 앙상블/레지스트리 설정 오류 (실행 중단)
	ErrConfigFault = errors.New("config fault")

	// ErrPersistenceFault 리포트 저장 실패 (실행 중단, 재시도 없음)
	ErrPersistenceFault = errors.New("persistence fault")

	// ErrTruthMismatch 앙상블 구성 모델 간 정답 시퀀스 불일치
	ErrTruthMismatch = errors.New("truth sequences differ across ensemble members")
)
