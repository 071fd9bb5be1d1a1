package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "설정 관리",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "설정 검증",
	Long: `환경 변수와 파이프라인 YAML을 읽고 검증합니다.
알 수 없는 키나 잘못된 file_type은 오류로 처리됩니다.`,
	RunE: checkConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
}

func checkConfig(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintHeader("Configuration", map[string]string{
		"Env":      a.cfg.Env,
		"Pipeline": a.cfg.PipelineFile,
		"Hash":     a.hash,
	})

	PrintKeyValue("Output", a.pipeline.Output.Directory, 14)
	PrintKeyValue("File type", string(a.pipeline.Output.FileType), 14)
	PrintKeyValue("Timezone", a.cfg.Timezone, 14)
	PrintKeyValue("Schedule", a.cfg.ScheduleDaily, 14)
	PrintKeyValue("Retention", retentionLabel(a.cfg.RetentionDays), 14)
	PrintKeyValue("Database", enabledLabel(a.cfg.Database.Enabled), 14)
	PrintKeyValue("Redis", enabledLabel(a.cfg.Redis.Enabled), 14)
	PrintKeyValue("NATS", enabledLabel(a.cfg.NATS.Enabled), 14)
	PrintKeyValue("Webhook", enabledLabel(a.cfg.Webhook.Enabled), 14)
	PrintKeyValue("Email", enabledLabel(a.cfg.Email.Enabled), 14)
	PrintSeparator()

	byVendor := map[string][]string{}
	for _, p := range a.pipeline.EnabledPairs() {
		byVendor[string(p.Vendor)] = append(byVendor[string(p.Vendor)], string(p.Market))
	}
	vendors := make([]string, 0, len(byVendor))
	for v := range byVendor {
		vendors = append(vendors, v)
	}
	sort.Strings(vendors)

	PrintInfo("Enabled scrapers")
	lines := make([]string, 0, len(vendors))
	for _, v := range vendors {
		lines = append(lines, fmt.Sprintf("%s: %s", v, strings.Join(byVendor[v], ", ")))
	}
	PrintList(lines)

	fmt.Println()
	PrintSuccess("Configuration is valid")
	return nil
}

func enabledLabel(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

func retentionLabel(days int) string {
	if days <= 0 {
		return "disabled"
	}
	return fmt.Sprintf("%d days", days)
}
