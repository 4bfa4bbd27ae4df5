// Package ofx reads credit card payments from OFX/QFX statement files.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/planning"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	paymentRegex  = regexp.MustCompile(`(?i)\bpayment\b`)
)

// Options controls which transactions count as card payments.
type Options struct {
	// CardPayee matches bank statement transactions paying the card, such as
	// "AMEX". Bank statements are ignored when it is nil.
	CardPayee  *regexp.Regexp
	StartMonth int
}

// Parser implements OFX/QFX file parsing.
type Parser struct {
	opts Options
}

// NewParser creates a new OFX parser.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes drop the closing bracket of a bare tag
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func (p *Parser) parse(ctx context.Context, reader io.Reader) (*ofxgo.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile reads every statement in an OFX file and returns the card payments
// it contains, summed per calendar month and signed as money leaving the paying
// account. Months are ordered oldest first.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.CreditCardPayment, error) {
	resp, err := p.parse(ctx, reader)
	if err != nil {
		return nil, err
	}

	totals := make(map[time.Time]int64)
	var bankStmts, ccStmts, matched int

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		ccStmts++
		for _, txn := range stmt.BankTranList.Transactions {
			if !isCardPayment(txn) {
				continue
			}
			matched++
			totals[monthOf(txn.DtPosted.Time)] -= minorUnits(txn.TrnAmt)
		}
	}

	if p.opts.CardPayee != nil {
		for _, msg := range resp.Bank {
			stmt, ok := msg.(*ofxgo.StatementResponse)
			if !ok || stmt.BankTranList == nil {
				continue
			}
			bankStmts++
			for _, txn := range stmt.BankTranList.Transactions {
				amount := minorUnits(txn.TrnAmt)
				if amount >= 0 || !p.opts.CardPayee.MatchString(description(txn)) {
					continue
				}
				matched++
				totals[monthOf(txn.DtPosted.Time)] += amount
			}
		}
	}

	slog.Info("Parsed OFX file",
		"payments", matched,
		"months", len(totals),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	if len(totals) == 0 {
		return nil, common.ErrNoPayments
	}

	months := make([]time.Time, 0, len(totals))
	for month := range totals {
		months = append(months, month)
	}
	slices.SortFunc(months, func(a, b time.Time) int { return a.Compare(b) })

	payments := make([]model.CreditCardPayment, 0, len(months))
	for _, month := range months {
		m := int(month.Month()) - 1
		payments = append(payments, model.CreditCardPayment{
			Year:  planning.FinancialYear(month.Year(), m, p.opts.StartMonth),
			Month: m,
			Value: totals[month],
		})
	}

	return payments, nil
}

// isCardPayment reports whether a card statement transaction is a payment
// towards the card rather than a purchase or refund.
func isCardPayment(txn ofxgo.Transaction) bool {
	if txn.TrnAmt.Sign() <= 0 {
		return false
	}
	if txn.TrnType == ofxgo.TrnTypePayment {
		return true
	}
	return paymentRegex.MatchString(description(txn))
}

func description(txn ofxgo.Transaction) string {
	if txn.Payee != nil && txn.Payee.Name != "" {
		return string(txn.Payee.Name)
	}
	return strings.TrimSpace(string(txn.Name) + " " + string(txn.Memo))
}

// minorUnits converts an OFX amount to pence, rounding half away from zero.
func minorUnits(amount ofxgo.Amount) int64 {
	return decimal.NewFromBigRat(&amount.Rat, 2).Shift(2).IntPart()
}

func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Accounts extracts the account IDs of every statement in the OFX file.
func (p *Parser) Accounts(ctx context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.parse(ctx, reader)
	if err != nil {
		return nil, err
	}

	var accounts []string
	add := func(id ofxgo.String) {
		if id != "" && !slices.Contains(accounts, string(id)) {
			accounts = append(accounts, string(id))
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(stmt.CCAcctFrom.AcctID)
		}
	}
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(stmt.BankAcctFrom.AcctID)
		}
	}

	return accounts, nil
}
