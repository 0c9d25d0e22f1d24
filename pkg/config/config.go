package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server (report API)
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Walk-forward validation
	Validation ValidationConfig
	Data       DataConfig
	Report     ReportConfig
	Scheduler  SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	Metrics MetricsConfig
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	SplitTTL time.Duration // 분할 캐시 TTL
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ValidationConfig holds walk-forward evaluation settings
type ValidationConfig struct {
	HeldOutSeason  int    // 검증 대상 시즌
	Horizon        string // 검증 시점 구간 ("2-36,39")
	ReportingSteps string // 피처 중요도 기록 시점 ("37,39")
	ImportanceTopN int    // 로그에 남길 상위 피처 수
	ModelsFile     string // 모델 레지스트리 YAML (비우면 기본 레지스트리)
}

// DataConfig holds observation source settings
type DataConfig struct {
	Source       string // csv | postgres
	Path         string // csv 경로
	IDColumn     string
	SeasonColumn string
	StepColumn   string
	TargetColumn string
	Categorical  []string
}

// ReportConfig holds report output settings
type ReportConfig struct {
	OutputDir string
	PersistDB bool          // 점수/중요도를 Postgres 에도 저장
	Retention time.Duration // DB 실행 기록 보관 기간 (0 이면 삭제 작업 없음)
}

// SchedulerConfig holds cron trigger settings
type SchedulerConfig struct {
	ValidationSchedule string // cron (초 포함)
	MaxRetries         int
	RetryDelay         time.Duration
}

// MetricsConfig holds Prometheus push settings
type MetricsConfig struct {
	Enabled     bool
	PushGateway string
	Job         string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			SplitTTL: getEnvAsDuration("REDIS_SPLIT_TTL", "24h"),
		},

		// Validation
		Validation: ValidationConfig{
			HeldOutSeason:  getEnvAsInt("HELD_OUT_SEASON", 2016),
			Horizon:        getEnv("VALIDATION_HORIZON", "2-36,39"),
			ReportingSteps: getEnv("REPORTING_STEPS", "37,39"),
			ImportanceTopN: getEnvAsInt("IMPORTANCE_TOP_N", 5),
			ModelsFile:     getEnv("MODELS_FILE", ""),
		},

		Data: DataConfig{
			Source:       getEnv("DATA_SOURCE", "csv"),
			Path:         getEnv("DATA_PATH", "/data/observations.csv"),
			IDColumn:     getEnv("DATA_ID_COLUMN", "name"),
			SeasonColumn: getEnv("DATA_SEASON_COLUMN", "season"),
			StepColumn:   getEnv("DATA_STEP_COLUMN", "week"),
			TargetColumn: getEnv("DATA_TARGET_COLUMN", "target"),
			Categorical:  getEnvAsList("DATA_CATEGORICAL", nil),
		},

		Report: ReportConfig{
			OutputDir: getEnv("OUTPUT_DIR", "/data"),
			PersistDB: getEnvAsBool("REPORT_PERSIST_DB", false),
			Retention: getEnvAsDuration("REPORT_RETENTION", "2160h"),
		},

		Scheduler: SchedulerConfig{
			ValidationSchedule: getEnv("VALIDATION_SCHEDULE", "0 0 6 * * 2"),
			MaxRetries:         getEnvAsInt("SCHEDULER_MAX_RETRIES", 0),
			RetryDelay:         getEnvAsDuration("SCHEDULER_RETRY_DELAY", "1m"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		Metrics: MetricsConfig{
			Enabled:     getEnvAsBool("METRICS_ENABLED", false),
			PushGateway: getEnv("METRICS_PUSHGATEWAY", ""),
			Job:         getEnv("METRICS_JOB", "walkforward_validation"),
		},
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// NeedsDatabase reports whether any component requires a Postgres connection
func (c *Config) NeedsDatabase() bool {
	return c.Data.Source == "postgres" || c.Report.PersistDB
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Data.Source {
	case "csv":
		if c.Data.Path == "" {
			return fmt.Errorf("DATA_PATH is required when DATA_SOURCE=csv")
		}
	case "postgres":
	default:
		return fmt.Errorf("DATA_SOURCE must be one of: csv, postgres")
	}

	// Database URL is required only when something reads or writes Postgres
	if c.NeedsDatabase() && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DATA_SOURCE=postgres or REPORT_PERSIST_DB=true")
	}

	if c.Metrics.Enabled && c.Metrics.PushGateway == "" {
		return fmt.Errorf("METRICS_PUSHGATEWAY is required when METRICS_ENABLED=true")
	}

	if c.Validation.ImportanceTopN < 0 {
		return fmt.Errorf("IMPORTANCE_TOP_N must not be negative")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env", // Current directory
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
