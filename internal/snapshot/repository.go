package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/pipelineconfig"
	"github.com/wonny/carwatch/pkg/logger"
)

const (
	extAvro = ".avro"
	extCSV  = ".csv"

	reportsDir = "reports"
)

// Repository stores one snapshot per (date key, kind) under {root}/{date}/
// ⭐ SSOT: 스냅샷 파일 읽기/쓰기는 이 저장소에서만
type Repository struct {
	root        string
	pricesName  string
	financeName string
	fileType    pipelineconfig.FileType
	logger      *logger.Logger
}

// NewRepository creates a repository from the output section of the pipeline config
func NewRepository(out pipelineconfig.Output, log *logger.Logger) *Repository {
	return &Repository{
		root:        out.Directory,
		pricesName:  out.PricesFilename,
		financeName: out.FinanceOptionsFilename,
		fileType:    out.FileType,
		logger:      log.WithComponent("snapshot"),
	}
}

// Root returns the snapshot directory
func (r *Repository) Root() string {
	return r.root
}

// Path returns {root}/{date}/{filename}{ext} for a snapshot kind
func (r *Repository) Path(date string, kind contracts.SnapshotKind, ext string) string {
	name := r.pricesName
	if kind == contracts.KindFinance {
		name = r.financeName
	}
	return filepath.Join(r.root, date, name+ext)
}

type codec[T any] struct {
	kind       contracts.SnapshotKind
	encodeAvro func([]T) ([]byte, error)
	decodeAvro func(io.Reader) ([]T, error)
	encodeCSV  func([]T) ([]byte, error)
	decodeCSV  func(io.Reader) ([]T, error)
}

var (
	lineItemCodec = codec[contracts.LineItem]{
		kind:       contracts.KindPrices,
		encodeAvro: encodeLineItemsAvro,
		decodeAvro: decodeLineItemsAvro,
		encodeCSV:  EncodeLineItemsCSV,
		decodeCSV:  DecodeLineItemsCSV,
	}
	financeCodec = codec[contracts.FinanceLineItem]{
		kind:       contracts.KindFinance,
		encodeAvro: encodeFinanceAvro,
		decodeAvro: decodeFinanceAvro,
		encodeCSV:  EncodeFinanceCSV,
		decodeCSV:  DecodeFinanceCSV,
	}
)

// ValidateDateKey rejects keys that cannot name a single directory
func ValidateDateKey(date string) error {
	if strings.TrimSpace(date) == "" || date == "." || date == ".." || strings.ContainsAny(date, `/\`) {
		return fmt.Errorf("%w: date key %q", contracts.ErrInvalidArgument, date)
	}
	return nil
}

func save[T any](r *Repository, c codec[T], date string, items []T) error {
	if err := ValidateDateKey(date); err != nil {
		return err
	}

	type output struct {
		ext    string
		encode func([]T) ([]byte, error)
	}
	var outputs []output
	switch r.fileType {
	case pipelineconfig.FileTypeCSV:
		outputs = []output{{extCSV, c.encodeCSV}}
	case pipelineconfig.FileTypeDual:
		outputs = []output{{extAvro, c.encodeAvro}, {extCSV, c.encodeCSV}}
	default:
		outputs = []output{{extAvro, c.encodeAvro}}
	}

	for _, o := range outputs {
		data, err := o.encode(items)
		if err != nil {
			return fmt.Errorf("encode %s snapshot %s: %w", c.kind, date, err)
		}
		path := r.Path(date, c.kind, o.ext)
		if err := writeFileAtomic(path, data); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"date":  date,
		"kind":  c.kind,
		"count": len(items),
	}).Info("Snapshot saved")
	return nil
}

func load[T any](r *Repository, c codec[T], date string) ([]T, error) {
	if err := ValidateDateKey(date); err != nil {
		return nil, err
	}

	type input struct {
		ext    string
		decode func(io.Reader) ([]T, error)
	}
	inputs := []input{{extAvro, c.decodeAvro}, {extCSV, c.decodeCSV}}
	if r.fileType == pipelineconfig.FileTypeCSV {
		inputs[0], inputs[1] = inputs[1], inputs[0]
	}

	for _, in := range inputs {
		path := r.Path(date, c.kind, in.ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		items, err := in.decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	}

	r.logger.WithFields(map[string]interface{}{
		"date": date,
		"kind": c.kind,
	}).Debug("No snapshot file, returning empty snapshot")
	return []T{}, nil
}

// SaveLineItems writes the prices snapshot of a date, replacing any previous one
func (r *Repository) SaveLineItems(date string, items []contracts.LineItem) error {
	return save(r, lineItemCodec, date, items)
}

// SaveFinanceItems writes the finance snapshot of a date, replacing any previous one
func (r *Repository) SaveFinanceItems(date string, items []contracts.FinanceLineItem) error {
	return save(r, financeCodec, date, items)
}

// LoadLineItems returns the prices snapshot of a date (empty when absent)
func (r *Repository) LoadLineItems(date string) ([]contracts.LineItem, error) {
	return load(r, lineItemCodec, date)
}

// LoadFinanceItems returns the finance snapshot of a date (empty when absent)
func (r *Repository) LoadFinanceItems(date string) ([]contracts.FinanceLineItem, error) {
	return load(r, financeCodec, date)
}

// Exists reports whether any serialization of the snapshot is on disk
func (r *Repository) Exists(date string, kind contracts.SnapshotKind) bool {
	for _, ext := range []string{extAvro, extCSV} {
		if _, err := os.Stat(r.Path(date, kind, ext)); err == nil {
			return true
		}
	}
	return false
}

// Dates lists the date keys present under root, ascending
func (r *Repository) Dates() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.root, err)
	}

	var dates []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dates = append(dates, e.Name())
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// PreviousDate returns the latest date key strictly before date
func (r *Repository) PreviousDate(date string) (string, bool, error) {
	dates, err := r.Dates()
	if err != nil {
		return "", false, err
	}
	for i := len(dates) - 1; i >= 0; i-- {
		if dates[i] < date {
			return dates[i], true, nil
		}
	}
	return "", false, nil
}

// DeleteBefore removes every date directory sorting before cutoff
func (r *Repository) DeleteBefore(cutoff string) ([]string, error) {
	if err := ValidateDateKey(cutoff); err != nil {
		return nil, err
	}
	dates, err := r.Dates()
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, d := range dates {
		if d >= cutoff {
			break
		}
		if err := os.RemoveAll(filepath.Join(r.root, d)); err != nil {
			return removed, fmt.Errorf("remove %s: %w", d, err)
		}
		removed = append(removed, d)
	}

	if len(removed) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"cutoff":  cutoff,
			"removed": len(removed),
		}).Info("Old snapshots pruned")
	}
	return removed, nil
}

// ReportPath returns {root}/{date}/reports/{name}
func (r *Repository) ReportPath(date, name string) string {
	return filepath.Join(r.root, date, reportsDir, name)
}

// WriteReport stores a derived report file next to the day's snapshot
func (r *Repository) WriteReport(date, name string, data []byte) error {
	if err := ValidateDateKey(date); err != nil {
		return err
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: report name %q", contracts.ErrInvalidArgument, name)
	}
	return writeFileAtomic(r.ReportPath(date, name), data)
}
