package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/pipelineconfig"
	"github.com/wonny/carwatch/internal/snapshot"
)

// Source fetches today's line-up of one (vendor, market).
// Vendor scrapers live outside this module and hand over data through a Source.
type Source interface {
	Vendor() contracts.Vendor
	Market() contracts.Market
	FetchLineItems(ctx context.Context) ([]contracts.LineItem, error)
	FetchFinanceItems(ctx context.Context) ([]contracts.FinanceLineItem, error)
}

// FileSource reads CSV exports dropped into an inbox directory:
// {inbox}/{vendor}_{market}_prices.csv and {inbox}/{vendor}_{market}_finance_options.csv
type FileSource struct {
	inbox  string
	vendor contracts.Vendor
	market contracts.Market
}

// NewFileSource creates a source for one (vendor, market) export pair
func NewFileSource(inbox string, v contracts.Vendor, m contracts.Market) *FileSource {
	return &FileSource{inbox: inbox, vendor: v, market: m}
}

// FileSources creates one FileSource per pair
func FileSources(inbox string, pairs []pipelineconfig.VendorMarket) []Source {
	out := make([]Source, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, NewFileSource(inbox, p.Vendor, p.Market))
	}
	return out
}

func (s *FileSource) Vendor() contracts.Vendor { return s.vendor }
func (s *FileSource) Market() contracts.Market { return s.market }

// Path returns the export file of a snapshot kind
func (s *FileSource) Path(kind contracts.SnapshotKind) string {
	suffix := "prices"
	if kind == contracts.KindFinance {
		suffix = "finance_options"
	}
	name := fmt.Sprintf("%s_%s_%s.csv", s.vendor.Key(), strings.ToLower(string(s.market)), suffix)
	return filepath.Join(s.inbox, name)
}

// FetchLineItems reads the prices export
func (s *FileSource) FetchLineItems(ctx context.Context) ([]contracts.LineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path(contracts.KindPrices))
	if err != nil {
		return nil, fmt.Errorf("open prices export: %w", err)
	}
	defer f.Close()

	items, err := snapshot.DecodeLineItemsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Name(), err)
	}
	return items, nil
}

// FetchFinanceItems reads the finance export
func (s *FileSource) FetchFinanceItems(ctx context.Context) ([]contracts.FinanceLineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path(contracts.KindFinance))
	if err != nil {
		return nil, fmt.Errorf("open finance export: %w", err)
	}
	defer f.Close()

	items, err := snapshot.DecodeFinanceCSV(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Name(), err)
	}
	return items, nil
}
