package quality

import (
	"math"
	"strconv"
	"strings"

	"github.com/wonny/carwatch/internal/contracts"
	"github.com/wonny/carwatch/internal/snapshot"
)

// Table is a fixed-schema, row-oriented view of a snapshot.
// Cells hold string, float64, int, bool, []contracts.LineItemOption or nil.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]interface{}
}

// NewTable creates an empty table with the given columns
func NewTable(columns []string) *Table {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	return &Table{columns: columns, index: index}
}

// FromLineItems builds the prices table
func FromLineItems(items []contracts.LineItem) *Table {
	t := NewTable(contracts.LineItemColumns)
	for _, it := range items {
		t.Append(it.Values())
	}
	return t
}

// FromFinanceItems builds the finance table
func FromFinanceItems(items []contracts.FinanceLineItem) *Table {
	t := NewTable(contracts.FinanceLineItemColumns)
	for _, it := range items {
		t.Append(it.Values())
	}
	return t
}

// Append adds a row. Short rows are padded with nil.
func (t *Table) Append(values []interface{}) {
	row := make([]interface{}, len(t.columns))
	copy(row, values)
	t.rows = append(t.rows, row)
}

// Columns returns the column names in order
func (t *Table) Columns() []string { return t.columns }

// Len returns the number of rows
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether the column exists
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Missing returns the columns absent from the table
func (t *Table) Missing(columns ...string) []string {
	var out []string
	for _, c := range columns {
		if !t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Value returns the raw cell, nil for unknown columns
func (t *Table) Value(row int, column string) interface{} {
	i, ok := t.index[column]
	if !ok {
		return nil
	}
	return t.rows[row][i]
}

// String returns the delimited-text form of a cell
func (t *Table) String(row int, column string) string {
	return snapshot.FormatCell(t.Value(row, column))
}

// Float returns a numeric cell, NaN when the cell is null or unparseable
func (t *Table) Float(row int, column string) float64 {
	return toFloat(t.Value(row, column))
}

// Options returns the option list of a line_option_codes cell
func (t *Table) Options(row int, column string) []contracts.LineItemOption {
	opts, _ := t.Value(row, column).([]contracts.LineItemOption)
	return opts
}

// Column returns every cell of a column
func (t *Table) Column(column string) []interface{} {
	i, ok := t.index[column]
	if !ok {
		return nil
	}
	out := make([]interface{}, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out
}

// RowKey joins the text form of the given columns (all columns when none given)
func (t *Table) RowKey(row int, columns ...string) string {
	if len(columns) == 0 {
		columns = t.columns
	}
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = t.String(row, c)
	}
	return strings.Join(parts, "\x1f")
}

// Coerce converts the given columns to numbers in place.
// int and float64 cells keep their type; anything else is parsed as
// float64 and unparseable cells become NaN.
func (t *Table) Coerce(columns []string) {
	for _, c := range columns {
		i, ok := t.index[c]
		if !ok {
			continue
		}
		for _, row := range t.rows {
			switch row[i].(type) {
			case int, float64:
				continue
			}
			row[i] = toFloat(row[i])
		}
	}
}

// Group is the sub-table of one (vendor, market)
type Group struct {
	Vendor contracts.Vendor
	Market contracts.Market
	Table  *Table
}

// GroupByVendorMarket splits the table per (vendor, market) in enum order
func (t *Table) GroupByVendorMarket() []Group {
	type key struct {
		v contracts.Vendor
		m contracts.Market
	}
	parts := make(map[key]*Table)
	for r := range t.rows {
		k := key{
			v: contracts.Vendor(t.String(r, "vendor")),
			m: contracts.Market(t.String(r, "market")),
		}
		sub, ok := parts[k]
		if !ok {
			sub = NewTable(t.columns)
			parts[k] = sub
		}
		sub.rows = append(sub.rows, t.rows[r])
	}

	var out []Group
	for _, v := range contracts.AllVendors() {
		for _, m := range contracts.AllMarkets() {
			if sub, ok := parts[key{v: v, m: m}]; ok {
				out = append(out, Group{Vendor: v, Market: m, Table: sub})
			}
		}
	}
	return out
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func stringOf(v interface{}) string {
	return snapshot.FormatCell(v)
}
