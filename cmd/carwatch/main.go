package main

import (
	"os"

	"github.com/wonny/carwatch/cmd/carwatch/commands"
)

// main is the entry point for the carwatch CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/carwatch [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
