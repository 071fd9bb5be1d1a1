package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/pipelineconfig"
	"github.com/wonny/carwatch/internal/snapshot"
	"github.com/wonny/carwatch/pkg/logger"
)

// Collector runs sources and merges their output into today's snapshot
// ⭐ SSOT: 스냅샷 수집/병합 오케스트레이션은 이 패키지에서만
type Collector struct {
	sources []Source
	repo    *snapshot.Repository
	cfg     *pipelineconfig.Config
	logger  *logger.Logger
}

// NewCollector creates a new Collector instance
func NewCollector(sources []Source, repo *snapshot.Repository, cfg *pipelineconfig.Config, log *logger.Logger) *Collector {
	return &Collector{
		sources: sources,
		repo:    repo,
		cfg:     cfg,
		logger:  log.WithField("module", "collector"),
	}
}

// FetchResult represents the outcome of one source
type FetchResult struct {
	Vendor          contracts.Vendor `json:"vendor"`
	Market          contracts.Market `json:"market"`
	PriceCount      int              `json:"price_count"`
	FinanceCount    int              `json:"finance_count"`
	PricesFallback  bool             `json:"prices_fallback"`
	FinanceFallback bool             `json:"finance_fallback"`
	Error           error            `json:"-"`

	invalid      error
	lineItems    []contracts.LineItem
	financeItems []contracts.FinanceLineItem
}

// Result is the merged snapshot of one collection run
type Result struct {
	Today        string                      `json:"today"`
	Yesterday    string                      `json:"yesterday"`
	Fetches      []FetchResult               `json:"fetches"`
	LineItems    []contracts.LineItem        `json:"-"`
	FinanceItems []contracts.FinanceLineItem `json:"-"`
}

// Fallbacks counts sources that fell back to yesterday for either kind
func (r *Result) Fallbacks() int {
	n := 0
	for _, f := range r.Fetches {
		if f.PricesFallback || f.FinanceFallback {
			n++
		}
	}
	return n
}

type job struct {
	index  int
	source Source
}

type indexedResult struct {
	index  int
	result FetchResult
}

// Collect fetches every enabled source with a bounded worker pool.
// A failed fetch falls back to yesterday's slice of that (vendor, market).
// A record that fails validation fails the whole batch and nothing is merged.
func (c *Collector) Collect(ctx context.Context, today, yesterday string) (*Result, error) {
	if err := snapshot.ValidateDateKey(today); err != nil {
		return nil, err
	}

	sources := c.enabledSources()
	prevPrices, prevFinance := c.loadFallback(yesterday)

	workers := c.cfg.Collector.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(sources) {
		workers = len(sources)
	}

	c.logger.WithFields(map[string]interface{}{
		"sources":   len(sources),
		"workers":   workers,
		"today":     today,
		"yesterday": yesterday,
	}).Info("Starting collection")

	// 1. Worker pool
	jobCh := make(chan job, len(sources))
	resultCh := make(chan indexedResult, len(sources))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobCh {
				res := c.fetch(ctx, j.source, today, prevPrices, prevFinance)
				if res.Error != nil {
					c.logger.WithError(res.Error).WithFields(map[string]interface{}{
						"worker": workerID,
						"vendor": res.Vendor,
						"market": res.Market,
					}).Warn("Fetch failed, using yesterday's snapshot")
				}
				resultCh <- indexedResult{index: j.index, result: res}
			}
		}(i)
	}

	for i, src := range sources {
		jobCh <- job{index: i, source: src}
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	fetches := make([]FetchResult, len(sources))
	for r := range resultCh {
		fetches[r.index] = r.result
	}

	var invalid []error
	for _, f := range fetches {
		if f.invalid != nil {
			invalid = append(invalid, f.invalid)
		}
	}
	if len(invalid) > 0 {
		err := errors.Join(invalid...)
		c.logger.WithError(err).WithField("today", today).Error("Collection aborted on invalid records")
		return nil, fmt.Errorf("collect %s: %w", today, err)
	}

	// 2. Merge into today's snapshot, source order
	var freshPrices []contracts.LineItem
	var freshFinance []contracts.FinanceLineItem
	scraped := make([]pipelineconfig.VendorMarket, 0, len(fetches))
	for _, f := range fetches {
		freshPrices = append(freshPrices, f.lineItems...)
		freshFinance = append(freshFinance, f.financeItems...)
		scraped = append(scraped, pipelineconfig.VendorMarket{Vendor: f.Vendor, Market: f.Market})
	}

	existingPrices, err := c.repo.LoadLineItems(today)
	if err != nil {
		return nil, fmt.Errorf("load today's prices: %w", err)
	}
	existingFinance, err := c.repo.LoadFinanceItems(today)
	if err != nil {
		return nil, fmt.Errorf("load today's finance: %w", err)
	}

	prices, err := c.repo.UpdateLineItems(existingPrices, freshPrices, scraped, today)
	if err != nil {
		return nil, fmt.Errorf("update prices: %w", err)
	}
	finance, err := c.repo.UpdateFinanceItems(existingFinance, freshFinance, scraped, today)
	if err != nil {
		return nil, fmt.Errorf("update finance: %w", err)
	}

	result := &Result{
		Today:        today,
		Yesterday:    yesterday,
		Fetches:      fetches,
		LineItems:    prices,
		FinanceItems: finance,
	}

	c.logger.WithFields(map[string]interface{}{
		"sources":   len(fetches),
		"fallbacks": result.Fallbacks(),
		"prices":    len(prices),
		"finance":   len(finance),
	}).Info("Collection completed")

	return result, nil
}

// enabledSources drops sources whose pair is not in scraper.enabled
func (c *Collector) enabledSources() []Source {
	out := make([]Source, 0, len(c.sources))
	for _, s := range c.sources {
		if !c.cfg.IsEnabled(s.Vendor(), s.Market()) {
			c.logger.WithFields(map[string]interface{}{
				"vendor": s.Vendor(),
				"market": s.Market(),
			}).Debug("Source not enabled, skipped")
			continue
		}
		out = append(out, s)
	}
	return out
}

func (c *Collector) loadFallback(yesterday string) ([]contracts.LineItem, []contracts.FinanceLineItem) {
	if yesterday == "" {
		return nil, nil
	}
	prices, err := c.repo.LoadLineItems(yesterday)
	if err != nil {
		c.logger.WithError(err).WithField("date", yesterday).Warn("Yesterday's prices unavailable for fallback")
		prices = nil
	}
	finance, err := c.repo.LoadFinanceItems(yesterday)
	if err != nil {
		c.logger.WithError(err).WithField("date", yesterday).Warn("Yesterday's finance unavailable for fallback")
		finance = nil
	}
	return prices, finance
}

func (c *Collector) fetch(ctx context.Context, src Source, today string, prevPrices []contracts.LineItem, prevFinance []contracts.FinanceLineItem) FetchResult {
	res := FetchResult{Vendor: src.Vendor(), Market: src.Market()}
	filter := snapshot.Filter{Vendor: res.Vendor, Market: res.Market}
	var errs []error

	prices, err := src.FetchLineItems(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("prices: %w", err))
		res.PricesFallback = true
		res.lineItems = snapshot.FilterLineItems(prevPrices, filter)
	} else if res.lineItems, err = acceptLineItems(prices, res.Vendor, res.Market, today); err != nil {
		res.invalid = fmt.Errorf("%s/%s prices: %w", res.Vendor, res.Market, err)
	}

	finance, err := src.FetchFinanceItems(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("finance: %w", err))
		res.FinanceFallback = true
		res.financeItems = snapshot.FilterFinanceItems(prevFinance, filter)
	} else if res.financeItems, err = acceptFinanceItems(finance, res.Vendor, res.Market, today); err != nil {
		res.invalid = errors.Join(res.invalid, fmt.Errorf("%s/%s finance: %w", res.Vendor, res.Market, err))
	}

	res.PriceCount = len(res.lineItems)
	res.FinanceCount = len(res.financeItems)
	res.Error = errors.Join(errs...)
	return res
}

// acceptLineItems stamps dates and validates every item of the source's pair.
// The first invalid item fails the whole slice.
func acceptLineItems(items []contracts.LineItem, v contracts.Vendor, m contracts.Market, today string) ([]contracts.LineItem, error) {
	out := make([]contracts.LineItem, 0, len(items))
	for _, it := range items {
		if it.RecordedAt == "" {
			it.RecordedAt = today
		}
		if it.LastScrapedOn == "" {
			it.LastScrapedOn = today
		}
		valid, err := contracts.NewLineItem(it)
		if err == nil && (valid.Vendor != v || valid.Market != m) {
			err = fmt.Errorf("%w: item belongs to %s/%s", contracts.ErrInvalidArgument, it.Vendor, it.Market)
		}
		if err != nil {
			return nil, fmt.Errorf("line %q: %w", it.LineCode, err)
		}
		out = append(out, valid)
	}
	return out, nil
}

// acceptFinanceItems is acceptLineItems for finance offers
func acceptFinanceItems(items []contracts.FinanceLineItem, v contracts.Vendor, m contracts.Market, today string) ([]contracts.FinanceLineItem, error) {
	out := make([]contracts.FinanceLineItem, 0, len(items))
	for _, it := range items {
		if it.RecordedAt == "" {
			it.RecordedAt = today
		}
		if it.LastScrapedOn == "" {
			it.LastScrapedOn = today
		}
		valid, err := contracts.NewFinanceLineItem(it)
		if err == nil && (valid.Vendor != v || valid.Market != m) {
			err = fmt.Errorf("%w: offer belongs to %s/%s", contracts.ErrInvalidArgument, it.Vendor, it.Market)
		}
		if err != nil {
			return nil, fmt.Errorf("line %q: %w", it.LineCode, err)
		}
		out = append(out, valid)
	}
	return out, nil
}
