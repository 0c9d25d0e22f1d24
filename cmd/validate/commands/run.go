package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/walkforward/internal/contracts"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "검증 1회 실행",
	Long: `Walk-forward 검증을 한 번 실행합니다.

이 명령어는:
- 레지스트리의 모든 모델을 시점별로 학습/평가
- 앙상블 점수 계산
- validation_scores.csv, scores.png, 중요도 CSV 저장

Example:
  go run ./cmd/validate run
  go run ./cmd/validate run --data observations.csv --out ./out
  go run ./cmd/validate run --horizon 2-10 --as-of 2016-12-01`,
	RunE: runValidation,
}

var (
	runAsOf    string
	runData    string
	runOut     string
	runModels  string
	runHorizon string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runAsOf, "as-of", "", "실행 기준일 (YYYY-MM-DD, 기본 오늘)")
	runCmd.Flags().StringVar(&runData, "data", "", "관측치 CSV 경로 (DATA_PATH 대체)")
	runCmd.Flags().StringVar(&runOut, "out", "", "리포트 출력 디렉토리 (OUTPUT_DIR 대체)")
	runCmd.Flags().StringVar(&runModels, "models", "", "모델 레지스트리 YAML (MODELS_FILE 대체)")
	runCmd.Flags().StringVar(&runHorizon, "horizon", "", "검증 구간 (예: 2-36,39)")
}

func runValidation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flag overrides
	if runData != "" {
		cfg.Data.Source = "csv"
		cfg.Data.Path = runData
	}
	if runOut != "" {
		cfg.Report.OutputDir = runOut
	}
	if runModels != "" {
		cfg.Validation.ModelsFile = runModels
	}
	if runHorizon != "" {
		cfg.Validation.Horizon = runHorizon
	}

	asOf, err := parseAsOf(runAsOf)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := newDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	table, err := d.runner.Run(ctx, asOf)
	if err != nil {
		d.log.WithError(err).Error("Validation run failed")
		return err
	}

	printTable(table)
	fmt.Printf("\n✅ Reports written to %s\n", cfg.Report.OutputDir)
	return nil
}

// parseAsOf 기준일 파싱 (비우면 현재 시각)
func parseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q: %w", s, err)
	}
	return t, nil
}

// printTable 열 평균 출력
func printTable(table *contracts.ScoreTable) {
	fmt.Printf("\n=== Validation run %s ===\n", table.RunID)
	fmt.Printf("Steps: %s\n\n", contracts.Horizon(table.Steps))
	fmt.Printf("%-20s %10s\n", "MODEL", "MEAN RMSE")
	for _, m := range table.Means() {
		fmt.Printf("%-20s %10.4f\n", m.Column, m.Mean)
	}
}
