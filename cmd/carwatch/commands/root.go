package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	pipelineFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "carwatch",
	Short: "carwatch - daily automotive price & finance monitoring",
	Long: `carwatch Unified CLI

매일 수집된 차량 가격/금융 스냅샷을 전일과 비교하고,
변경 사항을 알리고, 데이터 품질 리포트를 생성합니다.

Usage:
  go run ./cmd/carwatch [command]

Examples:
  go run ./cmd/carwatch run --dry-run
  go run ./cmd/carwatch diff --date 20240102
  go run ./cmd/carwatch quality --kind finance
  go run ./cmd/carwatch scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&pipelineFile, "pipeline", "", "pipeline YAML (default is $PIPELINE_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
