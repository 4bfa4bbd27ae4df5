package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/planning"
)

// Renderer writes planning tables to a terminal.
type Renderer struct {
	w      io.Writer
	colors bool
}

// NewRenderer creates a renderer writing to w. With colors set, transaction
// values are tinted with the colour scale computed for them.
func NewRenderer(w io.Writer, colors bool) *Renderer {
	return &Renderer{w: w, colors: colors}
}

type row struct {
	cells []string
	color string
	bold  bool
}

func (r *Renderer) render(headers []string, rows []row) string {
	cells := make([][]string, len(rows))
	for i, rw := range rows {
		cells[i] = rw.cells
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(SubtleStyle).
		Headers(headers...).
		Rows(cells...).
		StyleFunc(func(i, col int) lipgloss.Style {
			if i == table.HeaderRow {
				return TableHeaderStyle
			}
			style := TableCellStyle
			if i < 0 || i >= len(rows) {
				return style
			}
			if col > 1 {
				style = style.Align(lipgloss.Right)
			}
			if rows[i].bold {
				style = style.Bold(true)
			}
			if r.colors && rows[i].color != "" && col == 2 {
				style = style.Foreground(lipgloss.Color(rows[i].color))
			}
			return style
		}).
		Render()
}

func status(known, verified bool) string {
	switch {
	case !known:
		return ""
	case verified:
		return VerifiedIcon
	default:
		return EstimateIcon
	}
}

func monthTitle(month model.PlanningData) string {
	title := month.Date.Format("January 2006")
	if month.IsCurrentMonth {
		title += " (current)"
	}
	return title
}

// Month renders the ledger of every account for one month.
func (r *Renderer) Month(month model.PlanningData) string {
	var rows []row

	for _, acc := range month.Accounts {
		start := acc.StartValue
		rows = append(rows, row{
			cells: []string{acc.AccountGroup.Account, "Start", FormatOptionalMoney(start.ComputedValue), status(start.ComputedValue != nil, start.IsVerified)},
			bold:  true,
		})

		for _, tx := range acc.Transactions {
			name := tx.Name
			if tx.IsTransfer {
				name += " (transfer)"
			}
			rows = append(rows, row{
				cells: []string{"", name, FormatOptionalMoney(tx.ComputedValue), status(tx.ComputedValue != nil, tx.IsVerified)},
				color: tx.Color,
			})
		}

		for _, card := range acc.CreditCards {
			rows = append(rows, row{
				cells: []string{"", card.Name, FormatOptionalMoney(card.Value), status(card.Value != nil, card.IsVerified)},
			})
		}

		if acc.PreviousYearTaxRelief != 0 {
			rows = append(rows, row{
				cells: []string{"", planning.TaxReliefRow, FormatMoney(acc.PreviousYearTaxRelief), ""},
			})
		}

		end := acc.EndValue
		rows = append(rows, row{
			cells: []string{"", "End", FormatOptionalMoney(end.ComputedValue), status(end.ComputedValue != nil, end.IsVerified)},
			bold:  true,
		})
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(monthTitle(month)),
		r.render([]string{"Account", "Item", "Value", ""}, rows),
	)
}

// Table renders a projected financial year month by month.
func (r *Renderer) Table(year int, months []model.PlanningData) error {
	if _, err := fmt.Fprintln(r.w, FormatTitle("Financial year "+planning.YearLabel(year))); err != nil {
		return err
	}
	for _, month := range months {
		if _, err := fmt.Fprintln(r.w, r.Month(month)); err != nil {
			return err
		}
	}
	return nil
}

// Overview renders the yearly summary rows.
func (r *Renderer) Overview(year int, rows []model.OverviewRow) error {
	out := make([]row, 0, len(rows))
	for _, o := range rows {
		out = append(out, row{cells: []string{o.Name, "", FormatMoney(o.Value)}, bold: o.IsBold})
	}

	_, err := fmt.Fprintln(r.w, lipgloss.JoinVertical(lipgloss.Left,
		FormatTitle("Overview "+planning.YearLabel(year)),
		r.render([]string{"", "", "Total"}, out),
	))
	return err
}

// Payslip renders a predicted monthly payslip.
func (r *Renderer) Payslip(slip planning.Payslip) error {
	rows := []row{
		{cells: []string{planning.SalaryName, "", FormatMoney(slip.Salary)}},
		{cells: []string{planning.PensionName, "", FormatMoney(slip.Pension)}},
		{cells: []string{planning.IncomeTaxName, "", FormatMoney(slip.IncomeTax)}},
		{cells: []string{planning.NIName, "", FormatMoney(slip.NI)}},
		{cells: []string{planning.StudentLoanName, "", FormatMoney(slip.StudentLoan)}},
		{cells: []string{"Take home", "", FormatMoney(slip.Net())}, bold: true},
	}

	_, err := fmt.Fprintln(r.w, RenderBox("Monthly payslip", r.render([]string{"", "", "Amount"}, rows)))
	return err
}
