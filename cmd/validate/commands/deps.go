package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/walkforward/internal/contracts"
	"github.com/wonny/walkforward/internal/dataset"
	"github.com/wonny/walkforward/internal/models"
	"github.com/wonny/walkforward/internal/report"
	"github.com/wonny/walkforward/internal/validation"
	"github.com/wonny/walkforward/pkg/config"
	"github.com/wonny/walkforward/pkg/database"
	"github.com/wonny/walkforward/pkg/httputil"
	"github.com/wonny/walkforward/pkg/logger"
	"github.com/wonny/walkforward/pkg/metrics"
	"github.com/wonny/walkforward/pkg/redis"
)

// =============================================================================
// Dependency wiring
// =============================================================================

// deps 명령어 공통 의존성
type deps struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	redis   *redis.Client
	repo    *report.Repository
	metrics *metrics.Manager
	runner  *meteredRunner
}

// loadConfig 설정 로드 + verbose 플래그 반영
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newDeps 설정부터 검증 스위트까지 조립
func newDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	d := &deps{
		cfg: cfg,
		log: logger.New(cfg),
	}

	if cfg.NeedsDatabase() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		d.db = db
		d.log.Info("Connected to database")
	}

	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	d.redis = rdb

	registry, err := loadRegistry(cfg.Validation.ModelsFile)
	if err != nil {
		d.Close()
		return nil, err
	}

	sink, err := d.buildSink(ctx)
	if err != nil {
		d.Close()
		return nil, err
	}

	suiteCfg, err := suiteConfig(cfg)
	if err != nil {
		d.Close()
		return nil, err
	}

	d.metrics = d.buildMetrics()

	suite, err := validation.NewSuite(registry, d.buildProvider(), sink, suiteCfg, d.metrics, d.log.Zerolog())
	if err != nil {
		d.Close()
		return nil, err
	}
	d.runner = &meteredRunner{suite: suite, metrics: d.metrics, log: d.log}

	return d, nil
}

// Close releases connections (nil-safe)
func (d *deps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	d.db.Close()
}

// buildProvider 관측치 공급자 (csv | postgres) + Redis 분할 캐시
func (d *deps) buildProvider() dataset.Provider {
	var load dataset.Loader
	switch d.cfg.Data.Source {
	case "postgres":
		load = dataset.NewPostgresSource(d.db.Pool).Loader()
	default:
		load = dataset.CSVLoader(d.cfg.Data.Path, dataset.CSVSchema{
			IDColumn:     d.cfg.Data.IDColumn,
			SeasonColumn: d.cfg.Data.SeasonColumn,
			StepColumn:   d.cfg.Data.StepColumn,
			TargetColumn: d.cfg.Data.TargetColumn,
			Categorical:  d.cfg.Data.Categorical,
		})
	}

	cache := redis.NewCache(d.redis, "walkforward")
	return dataset.NewCachedProvider(d.cfg.Data.Source, dataset.NewTableProvider(load), cache, d.cfg.Redis.SplitTTL, d.log.Component("dataset.cache"))
}

// buildSink 파일 출력 + (선택) Postgres 저장
func (d *deps) buildSink(ctx context.Context) (contracts.ReportSink, error) {
	files := report.NewFileSink(d.cfg.Report.OutputDir, d.log.Component("report.file"))
	if !d.cfg.Report.PersistDB {
		return files, nil
	}

	d.repo = report.NewRepository(d.db.Pool)
	if err := d.repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure report schema: %w", err)
	}
	return report.MultiSink{files, d.repo}, nil
}

// buildMetrics Prometheus 메트릭 (Pushgateway 는 재시도 HTTP 클라이언트로 전송)
func (d *deps) buildMetrics() *metrics.Manager {
	opts := []metrics.Option{}
	if d.cfg.Metrics.Enabled {
		doer := httputil.New(d.log).WithTimeout(5*time.Second).WithRetry(2, time.Second)
		opts = append(opts,
			metrics.WithPushGateway(d.cfg.Metrics.PushGateway, d.cfg.Metrics.Job),
			metrics.WithHTTPDoer(doer),
		)
	}
	return metrics.NewManager(opts...)
}

// loadRegistry 모델 레지스트리 (파일이 없으면 기본 레지스트리)
func loadRegistry(path string) (*models.Registry, error) {
	if path == "" {
		return models.DefaultRegistry(), nil
	}
	registry, err := models.LoadManifest(path)
	if err != nil {
		return nil, fmt.Errorf("load model manifest: %w", err)
	}
	return registry, nil
}

// suiteConfig 설정 문자열을 검증 구간으로 변환
func suiteConfig(cfg *config.Config) (validation.SuiteConfig, error) {
	horizon, err := contracts.ParseHorizon(cfg.Validation.Horizon)
	if err != nil {
		return validation.SuiteConfig{}, fmt.Errorf("%w: VALIDATION_HORIZON: %w", contracts.ErrConfigFault, err)
	}
	steps, err := contracts.ParseSteps(cfg.Validation.ReportingSteps)
	if err != nil {
		return validation.SuiteConfig{}, fmt.Errorf("%w: REPORTING_STEPS: %w", contracts.ErrConfigFault, err)
	}
	return validation.SuiteConfig{
		HeldOutSeason:  cfg.Validation.HeldOutSeason,
		Horizon:        horizon,
		ReportingSteps: steps,
		ImportanceTopN: cfg.Validation.ImportanceTopN,
	}, nil
}

// =============================================================================
// Metered runner
// =============================================================================

// meteredRunner 실행 결과를 메트릭에 기록하고 Pushgateway 로 전송
type meteredRunner struct {
	suite   *validation.Suite
	metrics *metrics.Manager
	log     *logger.Logger
}

// Run implements jobs.Runner
func (r *meteredRunner) Run(ctx context.Context, asOf time.Time) (*contracts.ScoreTable, error) {
	r.metrics.ResetRun()
	start := time.Now()
	table, err := r.suite.Run(ctx, asOf)
	r.metrics.RunFinished(time.Since(start), err)

	runID := ""
	if table != nil {
		runID = table.RunID
	}
	if pushErr := r.metrics.Push(ctx, runID); pushErr != nil {
		r.log.WithError(pushErr).Warn("Metrics push failed")
	}

	return table, err
}
