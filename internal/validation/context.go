package validation

import "context"

type runIDKey struct{}

// WithRunID 실행 ID 를 컨텍스트에 저장 (스냅샷에 실행 ID 를 남기기 위함)
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext 컨텍스트의 실행 ID (없으면 빈 문자열)
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
