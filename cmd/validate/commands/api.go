package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/walkforward/internal/api"
	"github.com/wonny/walkforward/internal/api/handlers"
	"github.com/wonny/walkforward/internal/report"
	"github.com/wonny/walkforward/pkg/database"
	"github.com/wonny/walkforward/pkg/logger"
	"github.com/wonny/walkforward/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "리포트 조회 API 서버 시작",
	Long: `저장된 검증 실행을 조회하는 REST API 서버를 시작합니다.
DATABASE_URL 이 필요합니다.

Endpoints:
  GET  /health                      - Health check
  GET  /api/runs/latest             - 최근 실행 요약
  GET  /api/runs/{id}/scores        - 점수표 + 열 평균
  GET  /api/runs/{id}/importances   - 피처 중요도 스냅샷

Example:
  go run ./cmd/validate api
  go run ./cmd/validate api --port 8089`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (PORT 대체)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Walk-forward Report API ===")

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required for the report API")
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	ctx := cmd.Context()

	// 3. Connect to database
	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	// 4. Redis (disabled 이면 no-op 캐시)
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer rdb.Close() //nolint:errcheck

	// 5. Repository + handlers
	repo := report.NewRepository(db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure report schema: %w", err)
	}
	runs := handlers.NewRunsHandler(repo, redis.NewCache(rdb, "walkforward"), log)
	health := handlers.NewHealthHandler(db)

	// 6. Router + server
	server := api.New(cfg, log, api.NewRouter(runs, health, log))

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
