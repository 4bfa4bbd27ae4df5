package planning

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

var taxCodePattern = regexp.MustCompile(`^(\d+)L$`)

// Payslip is the predicted monthly breakdown of a salary. Deductions are negative.
type Payslip struct {
	Salary      int64
	IncomeTax   int64
	NI          int64
	StudentLoan int64
	Pension     int64
}

// Net is the take-home amount of the payslip.
func (p Payslip) Net() int64 {
	return p.Salary + p.IncomeTax + p.NI + p.StudentLoan + p.Pension
}

// TaxCalculator computes monthly deductions from one year's validated rates.
type TaxCalculator struct {
	rates *Rates
}

// NewTaxCalculator creates a calculator for the given rates.
func NewTaxCalculator(rates *Rates) *TaxCalculator {
	return &TaxCalculator{rates: rates}
}

// ForIncome predicts the monthly payslip of a yearly salary record.
func (c *TaxCalculator) ForIncome(income model.Income) (Payslip, error) {
	return c.Monthly(income.Salary/MonthsInYear, income.StudentLoan, income.PensionContrib, income.TaxCode)
}

// Monthly computes the payslip for a monthly gross salary. The pension
// contribution is a salary sacrifice: it is taken from gross before any tax,
// NI or student loan is assessed.
func (c *TaxCalculator) Monthly(gross int64, studentLoan bool, pensionContrib float64, taxCode string) (Payslip, error) {
	if gross < 0 {
		return Payslip{}, common.Malformed("negative salary %d", gross)
	}
	if pensionContrib < 0 || pensionContrib > 1 || math.IsNaN(pensionContrib) {
		return Payslip{}, common.Malformed("pension contribution out of range: %v", pensionContrib)
	}

	allowance := c.rates.MonthlyThreshold(IncomeTaxBasicAllowance)
	if taxCode != "" {
		yearly, err := ParseTaxCode(taxCode)
		if err != nil {
			return Payslip{}, err
		}
		allowance = monthly(yearly)
	}

	pension := applyRate(gross, pensionContrib)
	taxable := max(0, gross-pension)

	slip := Payslip{
		Salary:    gross,
		Pension:   -pension,
		IncomeTax: -c.incomeTax(taxable, allowance),
		NI:        -c.nationalInsurance(taxable),
	}
	if studentLoan {
		slip.StudentLoan = -c.studentLoan(taxable)
	}

	return slip, nil
}

func (c *TaxCalculator) incomeTax(taxable, allowance int64) int64 {
	higher := c.rates.MonthlyThreshold(IncomeTaxHigherThreshold)
	additional := c.rates.MonthlyThreshold(IncomeTaxAdditionalThreshold)

	return applyRate(band(taxable, allowance, higher), c.rates.Rate(IncomeTaxBasicRate)) +
		applyRate(band(taxable, max(allowance, higher), additional), c.rates.Rate(IncomeTaxHigherRate)) +
		applyRate(band(taxable, max(allowance, additional), math.MaxInt64), c.rates.Rate(IncomeTaxAdditionalRate))
}

func (c *TaxCalculator) nationalInsurance(taxable int64) int64 {
	paymentThreshold := c.rates.MonthlyThreshold(NIPaymentThreshold)
	upperLimit := c.rates.MonthlyThreshold(NIUpperEarningsLimit)

	return applyRate(band(taxable, paymentThreshold, upperLimit), c.rates.Rate(NILowerRate)) +
		applyRate(band(taxable, max(paymentThreshold, upperLimit), math.MaxInt64), c.rates.Rate(NIHigherRate))
}

func (c *TaxCalculator) studentLoan(taxable int64) int64 {
	threshold := c.rates.MonthlyThreshold(StudentLoanThreshold)
	return applyRate(band(taxable, threshold, math.MaxInt64), c.rates.Rate(StudentLoanRate))
}

// ParseTaxCode returns the yearly tax-free allowance, in minor units, encoded
// by a PAYE tax code such as "1257L". "0T" and "OT" carry no allowance.
func ParseTaxCode(code string) (int64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "0T" || code == "OT" {
		return 0, nil
	}

	match := taxCodePattern.FindStringSubmatch(code)
	if match == nil {
		return 0, common.Malformed("unsupported tax code %q", code)
	}

	units, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, common.Malformed("tax code %q: %v", code, err)
	}

	return units * 10 * 100, nil
}

// band returns the portion of amount that lies within [lower, upper).
func band(amount, lower, upper int64) int64 {
	top := min(amount, upper)
	if top <= lower {
		return 0
	}
	return top - lower
}

// applyRate multiplies a band amount by rate and rounds half away from zero
// to the nearest minor unit.
func applyRate(amount int64, rate float64) int64 {
	return decimal.NewFromInt(amount).Mul(decimal.NewFromFloat(rate)).Round(0).IntPart()
}
