package snapshot

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wonny/carwatch/internal/contracts"
)

// FormatCell renders one projected value as delimited text.
// Floats use the shortest representation that round-trips exactly.
func FormatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case []contracts.LineItemOption:
		if x == nil {
			x = []contracts.LineItemOption{}
		}
		data, _ := json.Marshal(x)
		return string(data)
	default:
		return fmt.Sprint(x)
	}
}

// EncodeCSV writes a header row and the rows in FormatCell form
func EncodeCSV(columns []string, rows [][]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, v := range row {
			record[i] = FormatCell(v)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// EncodeLineItemsCSV writes prices in LineItemColumns order
func EncodeLineItemsCSV(items []contracts.LineItem) ([]byte, error) {
	rows := make([][]interface{}, len(items))
	for i, li := range items {
		rows[i] = li.Values()
	}
	return EncodeCSV(contracts.LineItemColumns, rows)
}

// EncodeFinanceCSV writes finance offers in FinanceLineItemColumns order
func EncodeFinanceCSV(items []contracts.FinanceLineItem) ([]byte, error) {
	rows := make([][]interface{}, len(items))
	for i, fi := range items {
		rows[i] = fi.Values()
	}
	return EncodeCSV(contracts.FinanceLineItemColumns, rows)
}

// csvRow reads typed cells by column name; the first parse error sticks
type csvRow struct {
	index  map[string]int
	record []string
	line   int
	err    error
}

func (r *csvRow) str(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.record) {
		return ""
	}
	return r.record[i]
}

func (r *csvRow) float(col string) float64 {
	s := strings.TrimSpace(r.str(col))
	if s == "" || r.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.err = fmt.Errorf("line %d column %s: %w", r.line, col, err)
	}
	return v
}

func (r *csvRow) int(col string) int {
	s := strings.TrimSpace(r.str(col))
	if s == "" || r.err != nil {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// "48.0" from spreadsheet exports
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			r.err = fmt.Errorf("line %d column %s: %w", r.line, col, err)
			return 0
		}
		v = int(f)
	}
	return v
}

func (r *csvRow) options(col string) []contracts.LineItemOption {
	s := strings.TrimSpace(r.str(col))
	if s == "" || r.err != nil {
		return []contracts.LineItemOption{}
	}
	var out []contracts.LineItemOption
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		r.err = fmt.Errorf("line %d column %s: %w", r.line, col, err)
	}
	if out == nil {
		out = []contracts.LineItemOption{}
	}
	return out
}

func (r *csvRow) identity() contracts.Identity {
	return contracts.Identity{
		Vendor:                contracts.Vendor(r.str("vendor")),
		Market:                contracts.Market(r.str("market")),
		Series:                r.str("series"),
		ModelRangeCode:        r.str("model_range_code"),
		ModelRangeDescription: r.str("model_range_description"),
		ModelCode:             r.str("model_code"),
		ModelDescription:      r.str("model_description"),
		LineCode:              r.str("line_code"),
		LineDescription:       r.str("line_description"),
	}
}

// readCSV calls fn for every data row; columns are located by header name
func readCSV(r io.Reader, required []string, fn func(row *csvRow) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("csv header: missing column %q", col)
		}
	}

	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("csv line %d: %w", line, err)
		}
		row := &csvRow{index: index, record: record, line: line}
		if err := fn(row); err != nil {
			return err
		}
		if row.err != nil {
			return row.err
		}
	}
}

var identityColumns = contracts.LineItemColumns[:9]

// DecodeLineItemsCSV reads prices by header name. Only identity columns are required.
func DecodeLineItemsCSV(r io.Reader) ([]contracts.LineItem, error) {
	var out []contracts.LineItem
	err := readCSV(r, identityColumns, func(row *csvRow) error {
		out = append(out, contracts.LineItem{
			Identity:            row.identity(),
			Currency:            contracts.Currency(row.str("currency")),
			NetListPrice:        row.float("net_list_price"),
			GrossListPrice:      row.float("gross_list_price"),
			OnTheRoadPrice:      row.float("on_the_road_price"),
			EnginePerformanceKW: row.str("engine_performance_kw"),
			EnginePerformanceHP: row.str("engine_performance_hp"),
			LineOptionCodes:     row.options("line_option_codes"),
			RecordedAt:          row.str("recorded_at"),
			LastScrapedOn:       row.str("last_scraped_on"),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeFinanceCSV reads finance offers by header name
func DecodeFinanceCSV(r io.Reader) ([]contracts.FinanceLineItem, error) {
	var out []contracts.FinanceLineItem
	err := readCSV(r, append(identityColumns[:9:9], "contract_type"), func(row *csvRow) error {
		out = append(out, contracts.FinanceLineItem{
			Identity:             row.identity(),
			ContractType:         row.str("contract_type"),
			Currency:             contracts.Currency(row.str("currency")),
			MonthlyRentalGLP:     row.float("monthly_rental_glp"),
			MonthlyRentalNLP:     row.float("monthly_rental_nlp"),
			TermOfAgreement:      row.int("term_of_agreement"),
			NumberOfInstallments: row.float("number_of_installments"),
			Deposit:              row.float("deposit"),
			TotalDeposit:         row.float("total_deposit"),
			TotalCreditAmount:    row.float("total_credit_amount"),
			TotalPayableAmount:   row.float("total_payable_amount"),
			OTR:                  row.float("otr"),
			AnnualMileage:        row.float("annual_mileage"),
			ExcessMileage:        row.float("excess_mileage"),
			OptionalFinalPayment: row.float("optional_final_payment"),
			APR:                  row.float("apr"),
			FixedROI:             row.float("fixed_roi"),
			SalesOffer:           row.float("sales_offer"),
			OptionGrossListPrice: row.float("option_gross_list_price"),
			OptionDescription:    row.str("option_description"),
			OptionType:           row.str("option_type"),
			RecordedAt:           row.str("recorded_at"),
			LastScrapedOn:        row.str("last_scraped_on"),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
