package planning

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

// Names of the income-derived transactions.
const (
	SalaryName      = "Salary"
	IncomeTaxName   = "Income tax"
	NIName          = "NI"
	StudentLoanName = "Student loan"
	PensionName     = "Pension (SalSac)"
)

// A month is at least minRows tall and leaves room for numNewInputRows blank rows.
const (
	minRows         = 3
	numNewInputRows = 1
)

// Input is everything a projection depends on.
type Input struct {
	Today         time.Time
	State         model.State
	NetWorth      []model.NetWorthEntry
	CreditCards   []model.CreditCardSubcategory
	FinancialYear int
}

// Options configures the projector.
type Options struct {
	StartMonth int
}

// DefaultOptions returns options for an April-to-March financial year.
func DefaultOptions() Options {
	return Options{StartMonth: DefaultStartMonth}
}

// Validate checks the options are usable.
func (o Options) Validate() error {
	if o.StartMonth < 0 || o.StartMonth >= MonthsInYear {
		return fmt.Errorf("%w: start month %d must be between 0 and 11", common.ErrInvalidConfig, o.StartMonth)
	}
	return nil
}

// Projector computes the month-by-month ledger of a financial year.
type Projector struct {
	opts Options
}

// NewProjector creates a projector with the given options.
func NewProjector(opts Options) (*Projector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Projector{opts: opts}, nil
}

// Project computes the twelve months of in.FinancialYear with the default options.
func Project(in Input) ([]model.PlanningData, error) {
	return (&Projector{opts: DefaultOptions()}).Project(in)
}

// payslipKey identifies one income record of one account.
type payslipKey struct {
	account int
	income  int
}

// projection holds the lookups shared by every month of one Project call.
type projection struct {
	in          Input
	calculator  *TaxCalculator
	snapshots   map[int]model.NetWorthEntry
	cards       *cardHistory
	cardNames   map[int]string
	predictions map[int]*int64
	payslips    map[payslipKey]Payslip
	carried     *model.PlanningData
	anchored    map[int]bool
	todayIndex  int
}

// Project computes the twelve months of in.FinancialYear. Each month is derived
// only from the month before it. The first month starts from the net worth
// recorded in the month before the year; failing that, from the latest earlier
// entry carried forward through the gap; failing that, from the account's
// computed start value.
func (p *Projector) Project(in Input) ([]model.PlanningData, error) {
	proj, err := p.prepare(in)
	if err != nil {
		return nil, err
	}

	months := Months(in.FinancialYear, p.opts.StartMonth, MonthsInYear)
	if err := proj.carryForward(months[0], p.opts.StartMonth); err != nil {
		return nil, err
	}

	table := make([]model.PlanningData, 0, len(months))

	for i, month := range months {
		var previous *model.PlanningData
		if i > 0 {
			previous = &table[i-1]
		}

		data, err := proj.month(month, previous)
		if err != nil {
			return nil, err
		}
		table = append(table, data)
	}

	slog.Debug("projected financial year",
		"year", in.FinancialYear,
		"accounts", len(in.State.Accounts),
		"net_worth_entries", len(in.NetWorth))

	return table, nil
}

func (p *Projector) prepare(in Input) (*projection, error) {
	if err := validateIncome(in.State.Accounts); err != nil {
		return nil, err
	}

	proj := &projection{
		in:          in,
		snapshots:   indexNetWorth(in.NetWorth),
		cards:       newCardHistory(in.State.Accounts, p.opts.StartMonth),
		cardNames:   make(map[int]string, len(in.CreditCards)),
		predictions: make(map[int]*int64),
		payslips:    make(map[payslipKey]Payslip),
		todayIndex:  monthIndex(in.Today),
	}

	for _, params := range in.State.Parameters {
		if params.Year != in.FinancialYear {
			continue
		}
		rates, err := NewRates(params)
		if err != nil {
			return nil, err
		}
		proj.calculator = NewTaxCalculator(rates)
		break
	}

	for _, card := range in.CreditCards {
		proj.cardNames[card.ID] = card.Name
	}
	for subcategoryID := range proj.cards.payments {
		proj.predictions[subcategoryID] = proj.cards.predict(subcategoryID, proj.todayIndex)
	}

	return proj, nil
}

func validateIncome(accounts []model.AccountGroup) error {
	for _, account := range accounts {
		for i, income := range account.Income {
			if income.EndDate.Before(income.StartDate) {
				return common.Malformed("account %q income %d ends (%s) before it starts (%s)",
					account.Account, i,
					income.EndDate.Format(time.DateOnly),
					income.StartDate.Format(time.DateOnly))
			}
		}
	}
	return nil
}

// carryForward projects the months between the latest net worth entry at or
// before first and the month before first. The balances reached are kept for
// the accounts that entry records; the months themselves are discarded.
func (p *projection) carryForward(first model.PlanningMonth, startMonth int) error {
	firstIndex := planningMonthIndex(first)

	var anchor *model.NetWorthEntry
	for i := range p.in.NetWorth {
		entry := &p.in.NetWorth[i]
		if monthIndex(entry.Date) > firstIndex {
			continue
		}
		if anchor == nil || entry.Date.After(anchor.Date) {
			anchor = entry
		}
	}
	if anchor == nil {
		return nil
	}

	// An entry in the month before the year is read directly by start.
	gap := firstIndex - monthIndex(anchor.Date)
	if gap < 2 {
		return nil
	}

	var previous *model.PlanningData
	for _, month := range monthsFrom(anchor.Date, startMonth, gap) {
		data, err := p.month(month, previous)
		if err != nil {
			return err
		}
		previous = &data
	}

	p.carried = previous
	p.anchored = make(map[int]bool, len(anchor.Values))
	for _, value := range anchor.Values {
		if value.Simple != nil {
			p.anchored[value.Subcategory] = true
		}
	}

	slog.Debug("carried net worth forward",
		"from", anchor.Date.Format("2006-01"),
		"months", gap)
	return nil
}

// indexNetWorth keys net worth entries by month, keeping the latest entry of each month.
func indexNetWorth(entries []model.NetWorthEntry) map[int]model.NetWorthEntry {
	index := make(map[int]model.NetWorthEntry, len(entries))
	for _, entry := range entries {
		key := monthIndex(entry.Date)
		if existing, ok := index[key]; ok && !entry.Date.After(existing.Date) {
			continue
		}
		index[key] = entry
	}
	return index
}

// snapshot returns the recorded net worth of a subcategory in the month with the given index.
func (p *projection) snapshot(index, subcategoryID int) *int64 {
	entry, ok := p.snapshots[index]
	if !ok {
		return nil
	}
	for _, value := range entry.Values {
		if value.Subcategory == subcategoryID && value.Simple != nil {
			return ptr(*value.Simple)
		}
	}
	return nil
}

func (p *projection) month(month model.PlanningMonth, previous *model.PlanningData) (model.PlanningData, error) {
	accounts := p.in.State.Accounts
	transfers := ResolveTransfers(accounts, month, p.todayIndex)
	index := planningMonthIndex(month)

	data := model.PlanningData{
		PlanningMonth:  month,
		Accounts:       make([]model.MonthByAccount, 0, len(accounts)),
		NumRows:        minRows,
		IsCurrentMonth: index == p.todayIndex,
	}

	for a, account := range accounts {
		start, startVerified := p.start(a, account, index, previous)
		recordedEnd := p.snapshot(index, account.NetWorthSubcategoryID)

		transactions := explicitTransactions(account, month, recordedEnd != nil)
		transactions = append(transactions, computedTransactions(account, month)...)
		transactions = append(transactions, transfers[a]...)

		income, err := p.incomeTransactions(a, account, month)
		if err != nil {
			return model.PlanningData{}, err
		}
		transactions = append(transactions, income...)

		cards := creditCardsForMonth(p.cards, p.cardNames, p.predictions, account, a, month, p.todayIndex)

		end := recordedEnd
		if end == nil && start != nil {
			total := *start
			for _, txn := range transactions {
				if txn.ComputedValue != nil {
					total += *txn.ComputedValue
				}
			}
			for _, card := range cards {
				if card.Value != nil {
					total += *card.Value
				}
			}
			end = &total
		}

		key := accountKey(account)
		row := model.MonthByAccount{
			AccountGroup: account,
			StartValue: model.AccountValue{
				ID:            key + "_start",
				Name:          account.Account,
				ComputedValue: start,
				IsComputed:    true,
				IsVerified:    startVerified,
			},
			Transactions: transactions,
			CreditCards:  cards,
			EndValue: model.AccountValue{
				ID:            key + "_end",
				Name:          account.Account,
				ComputedValue: end,
				IsComputed:    true,
				IsVerified:    recordedEnd != nil,
			},
		}
		if previous == nil {
			row.PreviousYearTaxRelief = account.PreviousYearTaxRelief
		}

		data.NumRows = max(data.NumRows, len(transactions)+len(cards)+numNewInputRows)
		data.Accounts = append(data.Accounts, row)
	}

	return data, nil
}

// start derives an account's opening balance. After the first month it is the
// previous month's closing balance, carrying its verification.
func (p *projection) start(a int, account model.AccountGroup, index int, previous *model.PlanningData) (*int64, bool) {
	if previous != nil {
		end := previous.Accounts[a].EndValue
		if end.ComputedValue == nil {
			return nil, false
		}
		return ptr(*end.ComputedValue), end.IsVerified
	}

	if recorded := p.snapshot(index-1, account.NetWorthSubcategoryID); recorded != nil {
		return recorded, true
	}
	if p.carried != nil && p.anchored[account.NetWorthSubcategoryID] {
		end := p.carried.Accounts[a].EndValue
		if end.ComputedValue != nil {
			return ptr(*end.ComputedValue), end.IsVerified
		}
	}
	if account.ComputedStartValue != nil {
		return ptr(*account.ComputedStartValue), false
	}
	return nil, false
}

func explicitTransactions(account model.AccountGroup, month model.PlanningMonth, reconciled bool) []model.AccountTransaction {
	var rows []model.AccountTransaction
	for _, value := range account.Values {
		if !scheduledIn(value, month) {
			continue
		}
		rows = append(rows, model.AccountTransaction{
			ID:            strconv.Itoa(value.ID),
			Name:          value.Name,
			Value:         value.Value,
			Formula:       value.Formula,
			ComputedValue: computeValue(value),
			IsVerified:    reconciled,
			IsTransfer:    value.TransferToAccountID != nil,
		})
	}
	return rows
}

func computedTransactions(account model.AccountGroup, month model.PlanningMonth) []model.AccountTransaction {
	var rows []model.AccountTransaction
	for _, computed := range account.ComputedValues {
		if computed.Month != month.Month {
			continue
		}
		rows = append(rows, model.AccountTransaction{
			ID:            computed.Key,
			Name:          computed.Name,
			ComputedValue: ptr(computed.Value),
			IsComputed:    true,
			IsVerified:    computed.IsVerified,
			IsTransfer:    computed.IsTransfer,
		})
	}
	return rows
}

// incomeTransactions returns the recorded payslip rows for the month if any
// exist, otherwise the predicted rows of every income record active in the month.
func (p *projection) incomeTransactions(a int, account model.AccountGroup, month model.PlanningMonth) ([]model.AccountTransaction, error) {
	if rows := pastIncomeTransactions(account, month); rows != nil {
		return rows, nil
	}

	index := planningMonthIndex(month)
	var total Payslip
	active := false

	for i, income := range account.Income {
		if index < monthIndex(income.StartDate) || index > monthIndex(income.EndDate) {
			continue
		}

		slip, err := p.payslip(payslipKey{account: a, income: i}, income)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", account.Account, err)
		}

		active = true
		total.Salary += slip.Salary
		total.IncomeTax += slip.IncomeTax
		total.NI += slip.NI
		total.StudentLoan += slip.StudentLoan
		total.Pension += slip.Pension
	}

	if !active {
		return nil, nil
	}

	prefix := fmt.Sprintf("%d-%d", month.Year, month.Month)
	predicted := func(id, name string, value int64) model.AccountTransaction {
		return model.AccountTransaction{
			ID:            id,
			Name:          name,
			ComputedValue: ptr(value),
			IsComputed:    true,
		}
	}

	rows := []model.AccountTransaction{
		predicted("salary-"+prefix+"-predicted", SalaryName, total.Salary),
	}
	deductions := []struct {
		name  string
		tag   string
		value int64
	}{
		{IncomeTaxName, "Tax", total.IncomeTax},
		{NIName, "NI", total.NI},
		{StudentLoanName, "Student loan", total.StudentLoan},
		{PensionName, "Pension", total.Pension},
	}
	for _, deduction := range deductions {
		if deduction.value == 0 {
			continue
		}
		rows = append(rows, predicted("deduction-"+prefix+"-"+deduction.tag+"-predicted", deduction.name, deduction.value))
	}

	return rows, nil
}

// payslip computes the predicted payslip for an income record once per projection.
func (p *projection) payslip(key payslipKey, income model.Income) (Payslip, error) {
	if slip, ok := p.payslips[key]; ok {
		return slip, nil
	}
	if p.calculator == nil {
		return Payslip{}, common.Malformed("no tax parameters for year %d", p.in.FinancialYear)
	}

	slip, err := p.calculator.ForIncome(income)
	if err != nil {
		return Payslip{}, err
	}
	p.payslips[key] = slip
	return slip, nil
}

// pastIncomeTransactions merges every payslip recorded in the month into one
// verified salary row followed by one row per deduction name.
func pastIncomeTransactions(account model.AccountGroup, month model.PlanningMonth) []model.AccountTransaction {
	index := planningMonthIndex(month)

	var gross int64
	var names []string
	deductions := make(map[string]int64)
	found := false

	for _, past := range account.PastIncome {
		if monthIndex(past.Date) != index {
			continue
		}
		found = true
		gross += past.Gross
		for _, deduction := range past.Deductions {
			if _, seen := deductions[deduction.Name]; !seen {
				names = append(names, deduction.Name)
			}
			deductions[deduction.Name] += deduction.Value
		}
	}

	if !found {
		return nil
	}

	date := month.Date.Format(time.DateOnly)
	rows := make([]model.AccountTransaction, 0, len(names)+1)
	rows = append(rows, model.AccountTransaction{
		ID:            "salary-" + date,
		Name:          SalaryName,
		ComputedValue: ptr(gross),
		IsComputed:    true,
		IsVerified:    true,
	})
	for _, name := range names {
		rows = append(rows, model.AccountTransaction{
			ID:            "deduction-" + date + "-" + name,
			Name:          name,
			ComputedValue: ptr(deductions[name]),
			IsComputed:    true,
			IsVerified:    true,
		})
	}

	return rows
}

func accountKey(account model.AccountGroup) string {
	if account.ID != nil {
		return strconv.Itoa(*account.ID)
	}
	return "new_" + account.Account
}
