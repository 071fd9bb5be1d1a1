package quality

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/pkg/config"
	"github.com/wonny/carwatch/pkg/database"
	"github.com/wonny/carwatch/pkg/logger"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if testing.Short() || url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, &config.Config{
		Database: config.DatabaseConfig{
			Enabled:         true,
			URL:             url,
			MaxConns:        2,
			MinConns:        1,
			MaxConnLifetime: time.Minute,
			MaxConnIdleTime: time.Minute,
		},
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.Exec(ctx, Schema...))
	return db
}

func TestRepositorySaveSuiteReplaces(t *testing.T) {
	db := testDB(t)
	repo := NewRepository(db.Pool)
	ctx := context.Background()

	date := "t" + time.Now().Format("20060102150405")
	t.Cleanup(func() {
		for _, table := range reportTables {
			_, _ = db.Pool.Exec(ctx, `DELETE FROM `+table+` WHERE snapshot_date = $1`, date)
		}
	})

	res := NewSuite(contracts.KindPrices, suiteConfig(), logger.NewNop()).RunLineItems([]contracts.LineItem{
		lineItem(contracts.VendorBMW, contracts.MarketUK, "A"),
		lineItem(contracts.VendorBMW, contracts.MarketUK, "B"),
	})
	require.NotEmpty(t, res.Metrics)

	require.NoError(t, repo.SaveSuite(ctx, "run-1", date, res))
	require.NoError(t, repo.SaveSuite(ctx, "run-2", date, res))

	metrics, err := repo.ListMetrics(ctx, date, contracts.KindPrices)
	require.NoError(t, err)
	assert.Len(t, metrics, len(res.Metrics))
	for i := 1; i < len(metrics); i++ {
		assert.LessOrEqual(t, metrics[i-1].MetricName, metrics[i].MetricName)
	}

	other, err := repo.ListMetrics(ctx, date, contracts.KindFinance)
	require.NoError(t, err)
	assert.Empty(t, other)
}
