// Package snapshot reads and writes planning snapshots as YAML or TOML files,
// optionally encrypted with age.
package snapshot

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Date is a calendar date as written in snapshot files (2006-01-02).
type Date struct {
	time.Time
}

// UnmarshalText accepts a plain date or an RFC 3339 timestamp, keeping only the date.
func (d *Date) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, s)
		if tsErr != nil {
			return fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
		}
		t = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}
	d.Time = t
	return nil
}

// MarshalText writes the date as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.Format(time.DateOnly)), nil
}

// UnmarshalYAML decodes a date scalar.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: date must be a scalar", value.Line)
	}
	return d.UnmarshalText([]byte(value.Value))
}

// MarshalYAML writes the date as a plain scalar.
func (d Date) MarshalYAML() (any, error) {
	return d.Format(time.DateOnly), nil
}

type file struct {
	Accounts      []account      `yaml:"accounts" toml:"accounts"`
	TaxParameters []taxYear      `yaml:"tax_parameters,omitempty" toml:"tax_parameters,omitempty"`
	NetWorth      []netWorth     `yaml:"net_worth,omitempty" toml:"net_worth,omitempty"`
	CreditCards   []creditCardSC `yaml:"credit_card_subcategories,omitempty" toml:"credit_card_subcategories,omitempty"`
}

type account struct {
	ID                    *int            `yaml:"id,omitempty" toml:"id,omitempty"`
	ComputedStartValue    *int64          `yaml:"computed_start_value,omitempty" toml:"computed_start_value,omitempty"`
	Name                  string          `yaml:"name" toml:"name"`
	Income                []income        `yaml:"income,omitempty" toml:"income,omitempty"`
	PastIncome            []pastIncome    `yaml:"past_income,omitempty" toml:"past_income,omitempty"`
	Values                []value         `yaml:"values,omitempty" toml:"values,omitempty"`
	CreditCards           []creditCard    `yaml:"credit_cards,omitempty" toml:"credit_cards,omitempty"`
	ComputedValues        []computedValue `yaml:"computed_values,omitempty" toml:"computed_values,omitempty"`
	NetWorthSubcategoryID int             `yaml:"net_worth_subcategory_id" toml:"net_worth_subcategory_id"`
	PreviousYearTaxRelief int64           `yaml:"previous_year_tax_relief,omitempty" toml:"previous_year_tax_relief,omitempty"`
}

type income struct {
	StartDate      Date    `yaml:"start_date" toml:"start_date"`
	EndDate        Date    `yaml:"end_date" toml:"end_date"`
	TaxCode        string  `yaml:"tax_code,omitempty" toml:"tax_code,omitempty"`
	Salary         int64   `yaml:"salary" toml:"salary"`
	PensionContrib float64 `yaml:"pension_contrib,omitempty" toml:"pension_contrib,omitempty"`
	StudentLoan    bool    `yaml:"student_loan,omitempty" toml:"student_loan,omitempty"`
}

type pastIncome struct {
	Date       Date        `yaml:"date" toml:"date"`
	Deductions []deduction `yaml:"deductions,omitempty" toml:"deductions,omitempty"`
	Gross      int64       `yaml:"gross" toml:"gross"`
}

type deduction struct {
	Name  string `yaml:"name" toml:"name"`
	Value int64  `yaml:"value" toml:"value"`
}

type value struct {
	Value      *int64  `yaml:"value,omitempty" toml:"value,omitempty"`
	Formula    *string `yaml:"formula,omitempty" toml:"formula,omitempty"`
	TransferTo *int    `yaml:"transfer_to,omitempty" toml:"transfer_to,omitempty"`
	Name       string  `yaml:"name" toml:"name"`
	ID         int     `yaml:"id" toml:"id"`
	Year       int     `yaml:"year" toml:"year"`
	Month      int     `yaml:"month" toml:"month"`
}

type creditCard struct {
	Payments      []payment `yaml:"payments,omitempty" toml:"payments,omitempty"`
	SubcategoryID int       `yaml:"subcategory_id" toml:"subcategory_id"`
}

type payment struct {
	Year  int   `yaml:"year" toml:"year"`
	Month int   `yaml:"month" toml:"month"`
	Value int64 `yaml:"value" toml:"value"`
}

type computedValue struct {
	Key        string `yaml:"key" toml:"key"`
	Name       string `yaml:"name" toml:"name"`
	Month      int    `yaml:"month" toml:"month"`
	Value      int64  `yaml:"value" toml:"value"`
	IsVerified bool   `yaml:"verified,omitempty" toml:"verified,omitempty"`
	IsTransfer bool   `yaml:"transfer,omitempty" toml:"transfer,omitempty"`
}

type taxYear struct {
	Rates      []namedValue `yaml:"rates" toml:"rates"`
	Thresholds []namedValue `yaml:"thresholds" toml:"thresholds"`
	Year       int          `yaml:"year" toml:"year"`
}

type namedValue struct {
	Name  string  `yaml:"name" toml:"name"`
	Value float64 `yaml:"value" toml:"value"`
}

type netWorth struct {
	Date   Date            `yaml:"date" toml:"date"`
	Values []netWorthValue `yaml:"values,omitempty" toml:"values,omitempty"`
	ID     int             `yaml:"id" toml:"id"`
}

type netWorthValue struct {
	Simple      *int64 `yaml:"simple,omitempty" toml:"simple,omitempty"`
	Subcategory int    `yaml:"subcategory" toml:"subcategory"`
}

type creditCardSC struct {
	Name string `yaml:"name" toml:"name"`
	ID   int    `yaml:"id" toml:"id"`
}
