package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carwatch/internal/collector"
	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/notify"
	"github.com/wonny/carwatch/internal/pipelineconfig"
	"github.com/wonny/carwatch/internal/snapshot"
	"github.com/wonny/carwatch/pkg/logger"
	"github.com/wonny/carwatch/pkg/redis"
)

const (
	today     = "20240102"
	yesterday = "20240101"
)

type recordingNotifier struct {
	mu        sync.Mutex
	summaries []*notify.Summary
}

func (n *recordingNotifier) Name() string { return "recording" }

func (n *recordingNotifier) Notify(ctx context.Context, s *notify.Summary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, s)
	return nil
}

type memoryMarkers struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryMarkers) Mark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryMarkers) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func testConfig(t *testing.T) *pipelineconfig.Config {
	t.Helper()
	return &pipelineconfig.Config{
		Output: pipelineconfig.Output{
			Directory:              t.TempDir(),
			PricesFilename:         "prices",
			FinanceOptionsFilename: "finance_options",
			FileType:               pipelineconfig.FileTypeCSV,
		},
		Scraper:   pipelineconfig.Scraper{Enabled: map[string][]string{"bmw": {"UK"}}},
		Collector: pipelineconfig.CollectorConfig{Workers: 1},
		DataQualityPrices: pipelineconfig.DataQuality{
			NumericColumns: []string{"net_list_price", "gross_list_price", "on_the_road_price"},
			BMWSeries:      []string{"3"},
		},
		DataQualityFinance: pipelineconfig.DataQuality{
			NumericColumns: []string{"monthly_rental_glp", "monthly_rental_nlp"},
		},
	}
}

func lineItem(line string, net float64, date string, opts ...contracts.LineItemOption) contracts.LineItem {
	return contracts.LineItem{
		Identity: contracts.Identity{
			Vendor:                contracts.VendorBMW,
			Market:                contracts.MarketUK,
			Series:                "3",
			ModelRangeCode:        "G20",
			ModelRangeDescription: "3 Series Saloon",
			ModelCode:             "28FF",
			ModelDescription:      "320i",
			LineCode:              line,
			LineDescription:       "Line " + line,
		},
		Currency:            contracts.CurrencyGBP,
		NetListPrice:        net,
		GrossListPrice:      net * 1.2,
		OnTheRoadPrice:      net*1.2 + 1000,
		EnginePerformanceKW: "135",
		EnginePerformanceHP: "184",
		LineOptionCodes:     opts,
		RecordedAt:          date,
		LastScrapedOn:       date,
	}
}

func seed(t *testing.T, repo *snapshot.Repository) {
	t.Helper()
	require.NoError(t, repo.SaveLineItems(yesterday, []contracts.LineItem{
		lineItem("A", 30000, yesterday),
		lineItem("B", 32000, yesterday),
	}))
	require.NoError(t, repo.SaveLineItems(today, []contracts.LineItem{
		lineItem("A", 31500, today),
		lineItem("C", 40000, today),
	}))
}

func readReport(t *testing.T, repo *snapshot.Repository, name string) [][]string {
	t.Helper()
	f, err := os.Open(repo.ReportPath(today, name))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRunDryRun(t *testing.T) {
	cfg := testConfig(t)
	repo := snapshot.NewRepository(cfg.Output, logger.NewNop())
	seed(t, repo)

	rec := &recordingNotifier{}
	dispatcher := notify.NewDispatcher(nil, logger.NewNop(), rec)
	runner := NewRunner(repo, cfg, dispatcher, logger.NewNop()).
		WithCache(redis.NewCache(redis.NewFromRedis(nil), "carwatch"))

	res, err := runner.Run(context.Background(), RunConfig{Today: today, DryRun: true})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, yesterday, res.Yesterday)

	// NEW_LINE C, LINE_REMOVED B, PRICE_CHANGE A
	assert.Equal(t, 3, res.DifferenceCount)
	assert.Equal(t, 1, res.PriceDifferenceCount)
	require.Len(t, res.PriceDifferences, 1)
	assert.Equal(t, "5%", res.PriceDifferences[0].PercChange)

	require.NotNil(t, res.Summary)
	assert.Equal(t, 3, res.Summary.Total)
	assert.Empty(t, rec.summaries)

	stages := map[contracts.Stage]contracts.StageResult{}
	for _, s := range res.Stages {
		stages[s.Stage] = s
	}
	assert.True(t, stages[contracts.StageCollect].Skipped)
	assert.True(t, stages[contracts.StageNotify].Skipped)
	assert.True(t, stages[contracts.StageDiff].Success)
	assert.False(t, stages[contracts.StageDiff].Skipped)
	assert.True(t, stages[contracts.StageQuality].Success)
	assert.True(t, stages[contracts.StageReport].Success)

	require.Contains(t, res.Quality, contracts.KindPrices)
	require.Contains(t, res.Quality, contracts.KindFinance)
	assert.Equal(t, 2, res.Quality[contracts.KindPrices].Rows)
	assert.Equal(t, 0, res.Quality[contracts.KindFinance].Rows)

	assert.Len(t, res.Reports, 3+2*4)
	diffs := readReport(t, repo, ReportDifferences)
	require.Len(t, diffs, 4)
	assert.Equal(t, contracts.DifferenceColumns, diffs[0])

	metrics := readReport(t, repo, "quality_metrics_prices.csv")
	assert.Equal(t, contracts.QualityMetricColumns, metrics[0])
	assert.Greater(t, len(metrics), 1)

	finance := readReport(t, repo, "business_rules_finance.csv")
	assert.Len(t, finance, 1)
}

func TestRunNotifiesOncePerDate(t *testing.T) {
	cfg := testConfig(t)
	repo := snapshot.NewRepository(cfg.Output, logger.NewNop())
	seed(t, repo)

	rec := &recordingNotifier{}
	dispatcher := notify.NewDispatcher(&memoryMarkers{}, logger.NewNop(), rec)
	runner := NewRunner(repo, cfg, dispatcher, logger.NewNop())

	first, err := runner.Run(context.Background(), RunConfig{Today: today, Yesterday: yesterday, RunID: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", first.RunID)
	require.NotNil(t, first.Dispatch)
	assert.Equal(t, []string{"recording"}, first.Dispatch.Sent)

	second, err := runner.Run(context.Background(), RunConfig{Today: today, Yesterday: yesterday})
	require.NoError(t, err)
	require.NotNil(t, second.Dispatch)
	assert.True(t, second.Dispatch.Skipped)
	assert.Equal(t, "already sent", second.Dispatch.Reason)

	require.Len(t, rec.summaries, 1)
	assert.Equal(t, today, rec.summaries[0].Date)
}

func TestRunWithoutPreviousSnapshot(t *testing.T) {
	cfg := testConfig(t)
	repo := snapshot.NewRepository(cfg.Output, logger.NewNop())
	require.NoError(t, repo.SaveLineItems(today, []contracts.LineItem{lineItem("A", 30000, today)}))

	res, err := NewRunner(repo, cfg, nil, logger.NewNop()).Run(context.Background(), RunConfig{Today: today})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Empty(t, res.Yesterday)
	assert.Equal(t, 0, res.DifferenceCount)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "diff skipped")
	assert.True(t, res.Summary.Empty())
}

type staticSource struct {
	items []contracts.LineItem
}

func (s *staticSource) Vendor() contracts.Vendor { return contracts.VendorBMW }
func (s *staticSource) Market() contracts.Market { return contracts.MarketUK }
func (s *staticSource) FetchLineItems(ctx context.Context) ([]contracts.LineItem, error) {
	return s.items, nil
}
func (s *staticSource) FetchFinanceItems(ctx context.Context) ([]contracts.FinanceLineItem, error) {
	return nil, nil
}

func TestRunWithCollector(t *testing.T) {
	cfg := testConfig(t)
	repo := snapshot.NewRepository(cfg.Output, logger.NewNop())
	require.NoError(t, repo.SaveLineItems(yesterday, []contracts.LineItem{lineItem("A", 30000, yesterday)}))

	src := &staticSource{items: []contracts.LineItem{lineItem("A", 27000, "")}}
	c := collector.NewCollector([]collector.Source{src}, repo, cfg, logger.NewNop())

	res, err := NewRunner(repo, cfg, nil, logger.NewNop()).
		WithCollector(c).
		Run(context.Background(), RunConfig{Today: today, DryRun: true})
	require.NoError(t, err)

	require.NotNil(t, res.Collection)
	assert.Len(t, res.Collection.Fetches, 1)
	assert.Equal(t, 1, res.DifferenceCount)
	require.Len(t, res.PriceDifferences, 1)
	assert.Equal(t, contracts.PriceDecrease, res.PriceDifferences[0].Reason)
	assert.Equal(t, "-10%", res.PriceDifferences[0].PercChange)
}

func TestRunRejectsInvalidDate(t *testing.T) {
	cfg := testConfig(t)
	repo := snapshot.NewRepository(cfg.Output, logger.NewNop())

	_, err := NewRunner(repo, cfg, nil, logger.NewNop()).Run(context.Background(), RunConfig{Today: "a/b"})
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)
}

func TestQualityReportNames(t *testing.T) {
	assert.Equal(t, []string{
		"quality_report_finance.csv",
		"quality_metrics_finance.csv",
		"quality_rules_finance.csv",
		"business_rules_finance.csv",
	}, QualityReportNames(contracts.KindFinance))
}

func TestDateKeys(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	// 23:30 UTC on 31 Mar 2024 is already 1 Apr in London (BST)
	now := time.Date(2024, 3, 31, 23, 30, 0, 0, time.UTC)
	today, yesterday := DateKeys(now, loc)

	assert.Equal(t, "20240401", today)
	assert.Equal(t, "20240331", yesterday)

	today, yesterday = DateKeys(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, "20240301", today)
	assert.Equal(t, "20240229", yesterday)
}
