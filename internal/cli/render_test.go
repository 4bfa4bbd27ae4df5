package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/planning"
)

func ptr(v int64) *int64 { return &v }

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		want  string
		value int64
	}{
		{"£0.00", 0},
		{"£0.05", 5},
		{"£12.34", 1234},
		{"£1,234.56", 123456},
		{"-£1,234,567.89", -123456789},
		{"-£0.99", -99},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(tt.value))
		})
	}

	assert.Equal(t, "n/a", FormatOptionalMoney(nil))
	assert.Equal(t, "£1.00", FormatOptionalMoney(ptr(100)))
}

func testMonth() model.PlanningData {
	return model.PlanningData{
		PlanningMonth: model.PlanningMonth{
			Date:  time.Date(2024, time.April, 30, 23, 59, 59, 0, time.UTC),
			Year:  2024,
			Month: 3,
		},
		IsCurrentMonth: true,
		Accounts: []model.MonthByAccount{
			{
				AccountGroup: model.AccountGroup{Account: "Current"},
				StartValue:   model.AccountValue{ComputedValue: ptr(100000), IsVerified: true},
				Transactions: []model.AccountTransaction{
					{Name: "Salary", ComputedValue: ptr(450000), Color: "#2e7d32"},
					{Name: "Savings", ComputedValue: ptr(-50000), IsTransfer: true},
				},
				CreditCards: []model.AccountCreditCardPayment{
					{Name: "Amex", Value: ptr(-23456)},
				},
				PreviousYearTaxRelief: 12000,
				EndValue:              model.AccountValue{ComputedValue: ptr(488544)},
			},
			{
				AccountGroup: model.AccountGroup{Account: "Savings"},
				EndValue:     model.AccountValue{},
			},
		},
	}
}

func TestRendererTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, true)

	require.NoError(t, r.Table(2024, []model.PlanningData{testMonth()}))

	out := buf.String()
	assert.Contains(t, out, "Financial year 2024-25")
	assert.Contains(t, out, "April 2024 (current)")
	assert.Contains(t, out, "Current")
	assert.Contains(t, out, "£4,500.00")
	assert.Contains(t, out, "Savings (transfer)")
	assert.Contains(t, out, "-£234.56")
	assert.Contains(t, out, planning.TaxReliefRow)
	assert.Contains(t, out, "£4,885.44")
	assert.Contains(t, out, "n/a")
}

func TestRendererOverview(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)

	require.NoError(t, r.Overview(2024, []model.OverviewRow{
		{Name: planning.GrossIncomeRow, Value: 8500000, IsBold: true},
		{Name: planning.TaxesRow, Value: -1480800},
	}))

	out := buf.String()
	assert.Contains(t, out, "Overview 2024-25")
	assert.Contains(t, out, "Gross income")
	assert.Contains(t, out, "£85,000.00")
	assert.Contains(t, out, "-£14,808.00")
}

func TestRendererPayslip(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)

	slip := planning.Payslip{Salary: 708333, IncomeTax: -185067, NI: -46068, StudentLoan: -41366, Pension: -21250}
	require.NoError(t, r.Payslip(slip))

	out := buf.String()
	assert.Contains(t, out, "Monthly payslip")
	assert.Contains(t, out, "£7,083.33")
	assert.Contains(t, out, "Take home")
	assert.Contains(t, out, FormatMoney(slip.Net()))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "", status(false, true))
	assert.Equal(t, VerifiedIcon, status(true, true))
	assert.Equal(t, EstimateIcon, status(true, false))
}

func TestFormatMessages(t *testing.T) {
	assert.Contains(t, FormatSuccess("saved"), "saved")
	assert.Contains(t, FormatError("failed"), "failed")
	assert.Contains(t, FormatWarning("careful"), "careful")
	assert.Contains(t, FormatInfo("note"), "note")
	assert.Contains(t, FormatTitle("Plan"), ChartIcon)
	assert.Contains(t, RenderBox("Title", "body"), "body")
}
