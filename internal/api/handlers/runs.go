package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/walkforward/internal/contracts"
	"github.com/wonny/walkforward/internal/report"
	"github.com/wonny/walkforward/pkg/logger"
	"github.com/wonny/walkforward/pkg/redis"
)

// RunStore reads persisted validation runs (report.Repository 가 구현)
type RunStore interface {
	LatestRun(ctx context.Context) (*report.RunSummary, error)
	GetScores(ctx context.Context, runID string) (*contracts.ScoreTable, error)
	GetImportances(ctx context.Context, runID string) ([]contracts.ImportanceSnapshot, error)
}

// RunsHandler handles validation run endpoints
// ⭐ SSOT: 실행 조회 API 핸들러는 이 구조체에서만
// 완료된 실행은 변하지 않으므로 점수표는 Redis 에 캐시한다
type RunsHandler struct {
	store  RunStore
	cache  *redis.Cache
	logger *logger.Logger
}

// NewRunsHandler creates a new runs handler (cache 는 nil 가능)
func NewRunsHandler(store RunStore, cache *redis.Cache, log *logger.Logger) *RunsHandler {
	return &RunsHandler{
		store:  store,
		cache:  cache,
		logger: log,
	}
}

// scoresResponse 점수표 + 열 평균
type scoresResponse struct {
	Table *contracts.ScoreTable  `json:"table"`
	Means []contracts.ColumnMean `json:"means"`
}

// GetLatest returns the latest run summary
// GET /api/runs/latest
func (h *RunsHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.LatestRun(r.Context())
	if err != nil {
		h.fail(w, err, "", "failed to get latest run")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// GetScores returns the score table of a run
// GET /api/runs/{id}/scores
func (h *RunsHandler) GetScores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := mux.Vars(r)["id"]

	var resp scoresResponse
	if h.cacheEnabled() {
		found, err := h.cache.Get(ctx, redis.RunKey(runID), &resp)
		if err != nil {
			h.logger.WithError(err).WithField("run_id", runID).Warn("Run cache read failed")
		}
		if found {
			respondJSON(w, http.StatusOK, resp)
			return
		}
	}

	table, err := h.store.GetScores(ctx, runID)
	if err != nil {
		h.fail(w, err, runID, "failed to get scores")
		return
	}
	resp = scoresResponse{Table: table, Means: table.Means()}

	if h.cacheEnabled() {
		if err := h.cache.Set(ctx, redis.RunKey(runID), resp, redis.TTLShort); err != nil {
			h.logger.WithError(err).WithField("run_id", runID).Warn("Run cache write failed")
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetImportances returns every importance snapshot of a run
// GET /api/runs/{id}/importances
func (h *RunsHandler) GetImportances(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	snapshots, err := h.store.GetImportances(r.Context(), runID)
	if err != nil {
		h.fail(w, err, runID, "failed to get importances")
		return
	}
	if snapshots == nil {
		snapshots = []contracts.ImportanceSnapshot{}
	}
	respondJSON(w, http.StatusOK, snapshots)
}

func (h *RunsHandler) cacheEnabled() bool {
	return h.cache != nil && h.cache.Enabled()
}

func (h *RunsHandler) fail(w http.ResponseWriter, err error, runID, message string) {
	if errors.Is(err, report.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	h.logger.WithError(err).WithField("run_id", runID).Error(message)
	respondError(w, http.StatusInternalServerError, message)
}
