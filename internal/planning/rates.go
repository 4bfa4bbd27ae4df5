package planning

import (
	"fmt"
	"math"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

// Rate identifies a named tax rate.
type Rate string

// Standard rates. Every one of them must be present in a year's TaxParameters.
const (
	IncomeTaxBasicRate      Rate = "IncomeTaxBasicRate"
	IncomeTaxHigherRate     Rate = "IncomeTaxHigherRate"
	IncomeTaxAdditionalRate Rate = "IncomeTaxAdditionalRate"
	NILowerRate             Rate = "NILowerRate"
	NIHigherRate            Rate = "NIHigherRate"
	StudentLoanRate         Rate = "StudentLoanRate"
)

// Threshold identifies a named yearly tax threshold.
type Threshold string

// Standard thresholds, expressed as yearly amounts in minor units.
const (
	IncomeTaxBasicAllowance      Threshold = "IncomeTaxBasicAllowance"
	IncomeTaxHigherThreshold     Threshold = "IncomeTaxHigherThreshold"
	IncomeTaxAdditionalThreshold Threshold = "IncomeTaxAdditionalThreshold"
	NIPaymentThreshold           Threshold = "NIPT"
	NIUpperEarningsLimit         Threshold = "NIUEL"
	StudentLoanThreshold         Threshold = "StudentLoanThreshold"
)

// RequiredRates lists every rate NewRates insists on.
var RequiredRates = []Rate{
	IncomeTaxBasicRate,
	IncomeTaxHigherRate,
	IncomeTaxAdditionalRate,
	NILowerRate,
	NIHigherRate,
	StudentLoanRate,
}

// RequiredThresholds lists every threshold NewRates insists on.
var RequiredThresholds = []Threshold{
	IncomeTaxBasicAllowance,
	IncomeTaxHigherThreshold,
	IncomeTaxAdditionalThreshold,
	NIPaymentThreshold,
	NIUpperEarningsLimit,
	StudentLoanThreshold,
}

// Rates is the validated lookup of one year's tax parameters.
type Rates struct {
	rates      map[Rate]float64
	thresholds map[Threshold]int64
	Year       int
}

// NewRates validates params and builds its lookup. A missing, duplicated or
// negative entry is reported as ErrMalformedInput.
func NewRates(params model.TaxParameters) (*Rates, error) {
	r := &Rates{
		Year:       params.Year,
		rates:      make(map[Rate]float64, len(RequiredRates)),
		thresholds: make(map[Threshold]int64, len(RequiredThresholds)),
	}

	for _, named := range params.Rates {
		name := Rate(named.Name)
		if _, seen := r.rates[name]; seen {
			return nil, common.Malformed("year %d: duplicate rate %s", params.Year, name)
		}
		if named.Value < 0 || named.Value > 1 || math.IsNaN(named.Value) {
			return nil, common.Malformed("year %d: rate %s out of range: %v", params.Year, name, named.Value)
		}
		r.rates[name] = named.Value
	}

	for _, named := range params.Thresholds {
		name := Threshold(named.Name)
		if _, seen := r.thresholds[name]; seen {
			return nil, common.Malformed("year %d: duplicate threshold %s", params.Year, name)
		}
		if named.Value < 0 || math.IsNaN(named.Value) {
			return nil, common.Malformed("year %d: threshold %s is negative", params.Year, name)
		}
		r.thresholds[name] = int64(math.Round(named.Value))
	}

	for _, name := range RequiredRates {
		if _, ok := r.rates[name]; !ok {
			return nil, common.Malformed("year %d: missing rate %s", params.Year, name)
		}
	}
	for _, name := range RequiredThresholds {
		if _, ok := r.thresholds[name]; !ok {
			return nil, common.Malformed("year %d: missing threshold %s", params.Year, name)
		}
	}

	return r, nil
}

// RatesForYear finds and validates the parameters for year.
func RatesForYear(parameters []model.TaxParameters, year int) (*Rates, error) {
	for _, params := range parameters {
		if params.Year == year {
			return NewRates(params)
		}
	}
	return nil, fmt.Errorf("%w: no tax parameters for year %d", common.ErrMalformedInput, year)
}

// Rate returns the named rate.
func (r *Rates) Rate(name Rate) float64 {
	return r.rates[name]
}

// Threshold returns the named yearly threshold.
func (r *Rates) Threshold(name Threshold) int64 {
	return r.thresholds[name]
}

// MonthlyThreshold returns the named threshold divided over twelve months,
// rounded to the nearest minor unit.
func (r *Rates) MonthlyThreshold(name Threshold) int64 {
	return monthly(r.thresholds[name])
}

func monthly(yearly int64) int64 {
	return int64(math.Round(float64(yearly) / MonthsInYear))
}
