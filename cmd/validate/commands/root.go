package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "validate",
	Short: "Walk-forward 모델 검증",
	Long: `Walk-forward Validation CLI

검증 시즌의 각 시점마다 이전 관측치로 모델을 새로 학습하고
해당 시점 관측치로 RMSE 를 측정합니다.
모델별 점수, 앙상블 점수, 피처 중요도 스냅샷을 저장합니다.

Usage:
  go run ./cmd/validate [command]

Examples:
  go run ./cmd/validate run --data observations.csv --out ./out
  go run ./cmd/validate scheduler start
  go run ./cmd/validate api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug 로그 출력")
}
