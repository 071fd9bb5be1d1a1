package snapshot

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hamba/avro/v2/ocf"

	"github.com/wonny/carwatch/internal/contracts"
)

// Avro schemas mirror contracts.LineItemColumns / FinanceLineItemColumns field for field.
const lineItemSchema = `{
  "type": "record",
  "name": "LineItem",
  "namespace": "carwatch",
  "fields": [
    {"name": "vendor", "type": "string"},
    {"name": "market", "type": "string"},
    {"name": "series", "type": "string"},
    {"name": "model_range_code", "type": "string"},
    {"name": "model_range_description", "type": "string"},
    {"name": "model_code", "type": "string"},
    {"name": "model_description", "type": "string"},
    {"name": "line_code", "type": "string"},
    {"name": "line_description", "type": "string"},
    {"name": "currency", "type": "string"},
    {"name": "net_list_price", "type": "double"},
    {"name": "gross_list_price", "type": "double"},
    {"name": "on_the_road_price", "type": "double"},
    {"name": "engine_performance_kw", "type": "string"},
    {"name": "engine_performance_hp", "type": "string"},
    {"name": "line_option_codes", "type": {"type": "array", "items": {
      "type": "record",
      "name": "LineItemOption",
      "fields": [
        {"name": "code", "type": "string"},
        {"name": "description", "type": "string"},
        {"name": "type", "type": "string"},
        {"name": "included", "type": "boolean"},
        {"name": "net_list_price", "type": "double"},
        {"name": "gross_list_price", "type": "double"}
      ]
    }}},
    {"name": "recorded_at", "type": "string"},
    {"name": "last_scraped_on", "type": "string"}
  ]
}`

const financeLineItemSchema = `{
  "type": "record",
  "name": "FinanceLineItem",
  "namespace": "carwatch",
  "fields": [
    {"name": "vendor", "type": "string"},
    {"name": "market", "type": "string"},
    {"name": "series", "type": "string"},
    {"name": "model_range_code", "type": "string"},
    {"name": "model_range_description", "type": "string"},
    {"name": "model_code", "type": "string"},
    {"name": "model_description", "type": "string"},
    {"name": "line_code", "type": "string"},
    {"name": "line_description", "type": "string"},
    {"name": "contract_type", "type": "string"},
    {"name": "currency", "type": "string"},
    {"name": "monthly_rental_glp", "type": "double"},
    {"name": "monthly_rental_nlp", "type": "double"},
    {"name": "term_of_agreement", "type": "int"},
    {"name": "number_of_installments", "type": "double"},
    {"name": "deposit", "type": "double"},
    {"name": "total_deposit", "type": "double"},
    {"name": "total_credit_amount", "type": "double"},
    {"name": "total_payable_amount", "type": "double"},
    {"name": "otr", "type": "double"},
    {"name": "annual_mileage", "type": "double"},
    {"name": "excess_mileage", "type": "double"},
    {"name": "optional_final_payment", "type": "double"},
    {"name": "apr", "type": "double"},
    {"name": "fixed_roi", "type": "double"},
    {"name": "sales_offer", "type": "double"},
    {"name": "option_gross_list_price", "type": "double"},
    {"name": "option_description", "type": "string"},
    {"name": "option_type", "type": "string"},
    {"name": "recorded_at", "type": "string"},
    {"name": "last_scraped_on", "type": "string"}
  ]
}`

type avroOption struct {
	Code           string  `avro:"code"`
	Description    string  `avro:"description"`
	Type           string  `avro:"type"`
	Included       bool    `avro:"included"`
	NetListPrice   float64 `avro:"net_list_price"`
	GrossListPrice float64 `avro:"gross_list_price"`
}

type avroLineItem struct {
	Vendor                string       `avro:"vendor"`
	Market                string       `avro:"market"`
	Series                string       `avro:"series"`
	ModelRangeCode        string       `avro:"model_range_code"`
	ModelRangeDescription string       `avro:"model_range_description"`
	ModelCode             string       `avro:"model_code"`
	ModelDescription      string       `avro:"model_description"`
	LineCode              string       `avro:"line_code"`
	LineDescription       string       `avro:"line_description"`
	Currency              string       `avro:"currency"`
	NetListPrice          float64      `avro:"net_list_price"`
	GrossListPrice        float64      `avro:"gross_list_price"`
	OnTheRoadPrice        float64      `avro:"on_the_road_price"`
	EnginePerformanceKW   string       `avro:"engine_performance_kw"`
	EnginePerformanceHP   string       `avro:"engine_performance_hp"`
	LineOptionCodes       []avroOption `avro:"line_option_codes"`
	RecordedAt            string       `avro:"recorded_at"`
	LastScrapedOn         string       `avro:"last_scraped_on"`
}

type avroFinanceLineItem struct {
	Vendor                string  `avro:"vendor"`
	Market                string  `avro:"market"`
	Series                string  `avro:"series"`
	ModelRangeCode        string  `avro:"model_range_code"`
	ModelRangeDescription string  `avro:"model_range_description"`
	ModelCode             string  `avro:"model_code"`
	ModelDescription      string  `avro:"model_description"`
	LineCode              string  `avro:"line_code"`
	LineDescription       string  `avro:"line_description"`
	ContractType          string  `avro:"contract_type"`
	Currency              string  `avro:"currency"`
	MonthlyRentalGLP      float64 `avro:"monthly_rental_glp"`
	MonthlyRentalNLP      float64 `avro:"monthly_rental_nlp"`
	TermOfAgreement       int32   `avro:"term_of_agreement"`
	NumberOfInstallments  float64 `avro:"number_of_installments"`
	Deposit               float64 `avro:"deposit"`
	TotalDeposit          float64 `avro:"total_deposit"`
	TotalCreditAmount     float64 `avro:"total_credit_amount"`
	TotalPayableAmount    float64 `avro:"total_payable_amount"`
	OTR                   float64 `avro:"otr"`
	AnnualMileage         float64 `avro:"annual_mileage"`
	ExcessMileage         float64 `avro:"excess_mileage"`
	OptionalFinalPayment  float64 `avro:"optional_final_payment"`
	APR                   float64 `avro:"apr"`
	FixedROI              float64 `avro:"fixed_roi"`
	SalesOffer            float64 `avro:"sales_offer"`
	OptionGrossListPrice  float64 `avro:"option_gross_list_price"`
	OptionDescription     string  `avro:"option_description"`
	OptionType            string  `avro:"option_type"`
	RecordedAt            string  `avro:"recorded_at"`
	LastScrapedOn         string  `avro:"last_scraped_on"`
}

// identityFields returns the identity columns in schema order
func identityFields(id contracts.Identity) [9]string {
	return [9]string{
		string(id.Vendor), string(id.Market), id.Series,
		id.ModelRangeCode, id.ModelRangeDescription,
		id.ModelCode, id.ModelDescription,
		id.LineCode, id.LineDescription,
	}
}

func identityFromFields(f [9]string) contracts.Identity {
	return contracts.Identity{
		Vendor:                contracts.Vendor(f[0]),
		Market:                contracts.Market(f[1]),
		Series:                f[2],
		ModelRangeCode:        f[3],
		ModelRangeDescription: f[4],
		ModelCode:             f[5],
		ModelDescription:      f[6],
		LineCode:              f[7],
		LineDescription:       f[8],
	}
}

func (r *avroLineItem) setIdentity(id contracts.Identity) {
	f := identityFields(id)
	r.Vendor, r.Market, r.Series = f[0], f[1], f[2]
	r.ModelRangeCode, r.ModelRangeDescription = f[3], f[4]
	r.ModelCode, r.ModelDescription = f[5], f[6]
	r.LineCode, r.LineDescription = f[7], f[8]
}

func (r avroLineItem) identity() contracts.Identity {
	return identityFromFields([9]string{
		r.Vendor, r.Market, r.Series,
		r.ModelRangeCode, r.ModelRangeDescription,
		r.ModelCode, r.ModelDescription,
		r.LineCode, r.LineDescription,
	})
}

func (r *avroFinanceLineItem) setIdentity(id contracts.Identity) {
	f := identityFields(id)
	r.Vendor, r.Market, r.Series = f[0], f[1], f[2]
	r.ModelRangeCode, r.ModelRangeDescription = f[3], f[4]
	r.ModelCode, r.ModelDescription = f[5], f[6]
	r.LineCode, r.LineDescription = f[7], f[8]
}

func (r avroFinanceLineItem) identity() contracts.Identity {
	return identityFromFields([9]string{
		r.Vendor, r.Market, r.Series,
		r.ModelRangeCode, r.ModelRangeDescription,
		r.ModelCode, r.ModelDescription,
		r.LineCode, r.LineDescription,
	})
}

func encodeLineItemsAvro(items []contracts.LineItem) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := ocf.NewEncoder(lineItemSchema, &buf)
	if err != nil {
		return nil, fmt.Errorf("avro encoder: %w", err)
	}
	for i, li := range items {
		rec := avroLineItem{
			Currency:            string(li.Currency),
			NetListPrice:        li.NetListPrice,
			GrossListPrice:      li.GrossListPrice,
			OnTheRoadPrice:      li.OnTheRoadPrice,
			EnginePerformanceKW: li.EnginePerformanceKW,
			EnginePerformanceHP: li.EnginePerformanceHP,
			LineOptionCodes:     make([]avroOption, 0, len(li.LineOptionCodes)),
			RecordedAt:          li.RecordedAt,
			LastScrapedOn:       li.LastScrapedOn,
		}
		rec.setIdentity(li.Identity)
		for _, o := range li.LineOptionCodes {
			rec.LineOptionCodes = append(rec.LineOptionCodes, avroOption(o))
		}
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("avro encode record %d: %w", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("avro close: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeLineItemsAvro(r io.Reader) ([]contracts.LineItem, error) {
	dec, err := ocf.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("avro decoder: %w", err)
	}
	var out []contracts.LineItem
	for dec.HasNext() {
		var rec avroLineItem
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("avro decode record %d: %w", len(out), err)
		}
		li := contracts.LineItem{
			Identity:            rec.identity(),
			Currency:            contracts.Currency(rec.Currency),
			NetListPrice:        rec.NetListPrice,
			GrossListPrice:      rec.GrossListPrice,
			OnTheRoadPrice:      rec.OnTheRoadPrice,
			EnginePerformanceKW: rec.EnginePerformanceKW,
			EnginePerformanceHP: rec.EnginePerformanceHP,
			LineOptionCodes:     make([]contracts.LineItemOption, 0, len(rec.LineOptionCodes)),
			RecordedAt:          rec.RecordedAt,
			LastScrapedOn:       rec.LastScrapedOn,
		}
		for _, o := range rec.LineOptionCodes {
			li.LineOptionCodes = append(li.LineOptionCodes, contracts.LineItemOption(o))
		}
		out = append(out, li)
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("avro read: %w", err)
	}
	return out, nil
}

func encodeFinanceAvro(items []contracts.FinanceLineItem) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := ocf.NewEncoder(financeLineItemSchema, &buf)
	if err != nil {
		return nil, fmt.Errorf("avro encoder: %w", err)
	}
	for i, fi := range items {
		rec := avroFinanceLineItem{
			ContractType:         fi.ContractType,
			Currency:             string(fi.Currency),
			MonthlyRentalGLP:     fi.MonthlyRentalGLP,
			MonthlyRentalNLP:     fi.MonthlyRentalNLP,
			TermOfAgreement:      int32(fi.TermOfAgreement),
			NumberOfInstallments: fi.NumberOfInstallments,
			Deposit:              fi.Deposit,
			TotalDeposit:         fi.TotalDeposit,
			TotalCreditAmount:    fi.TotalCreditAmount,
			TotalPayableAmount:   fi.TotalPayableAmount,
			OTR:                  fi.OTR,
			AnnualMileage:        fi.AnnualMileage,
			ExcessMileage:        fi.ExcessMileage,
			OptionalFinalPayment: fi.OptionalFinalPayment,
			APR:                  fi.APR,
			FixedROI:             fi.FixedROI,
			SalesOffer:           fi.SalesOffer,
			OptionGrossListPrice: fi.OptionGrossListPrice,
			OptionDescription:    fi.OptionDescription,
			OptionType:           fi.OptionType,
			RecordedAt:           fi.RecordedAt,
			LastScrapedOn:        fi.LastScrapedOn,
		}
		rec.setIdentity(fi.Identity)
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("avro encode record %d: %w", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("avro close: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeFinanceAvro(r io.Reader) ([]contracts.FinanceLineItem, error) {
	dec, err := ocf.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("avro decoder: %w", err)
	}
	var out []contracts.FinanceLineItem
	for dec.HasNext() {
		var rec avroFinanceLineItem
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("avro decode record %d: %w", len(out), err)
		}
		out = append(out, contracts.FinanceLineItem{
			Identity:             rec.identity(),
			ContractType:         rec.ContractType,
			Currency:             contracts.Currency(rec.Currency),
			MonthlyRentalGLP:     rec.MonthlyRentalGLP,
			MonthlyRentalNLP:     rec.MonthlyRentalNLP,
			TermOfAgreement:      int(rec.TermOfAgreement),
			NumberOfInstallments: rec.NumberOfInstallments,
			Deposit:              rec.Deposit,
			TotalDeposit:         rec.TotalDeposit,
			TotalCreditAmount:    rec.TotalCreditAmount,
			TotalPayableAmount:   rec.TotalPayableAmount,
			OTR:                  rec.OTR,
			AnnualMileage:        rec.AnnualMileage,
			ExcessMileage:        rec.ExcessMileage,
			OptionalFinalPayment: rec.OptionalFinalPayment,
			APR:                  rec.APR,
			FixedROI:             rec.FixedROI,
			SalesOffer:           rec.SalesOffer,
			OptionGrossListPrice: rec.OptionGrossListPrice,
			OptionDescription:    rec.OptionDescription,
			OptionType:           rec.OptionType,
			RecordedAt:           rec.RecordedAt,
			LastScrapedOn:        rec.LastScrapedOn,
		})
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("avro read: %w", err)
	}
	return out, nil
}
