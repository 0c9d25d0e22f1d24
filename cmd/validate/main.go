package main

import (
	"os"

	"github.com/wonny/walkforward/cmd/validate/commands"
)

// main is the entry point for the walk-forward validation CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/validate [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
