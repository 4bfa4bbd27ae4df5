package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/service"
)

// Format is a snapshot file encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// EncryptedExt marks an age-encrypted snapshot file, as in plan.yaml.age.
const EncryptedExt = ".age"

// ErrUnknownFormat is returned for a file extension that is not yaml, yml or toml.
var ErrUnknownFormat = errors.New("unknown snapshot format")

// ErrNoIdentity is returned when an encrypted file is read without an identity.
var ErrNoIdentity = errors.New("encrypted snapshot requires an identity")

// Options controls how snapshot files are read.
type Options struct {
	// Identities decrypt files ending in .age.
	Identities []age.Identity
}

// FormatOf returns the format and encryption of a snapshot path from its extension.
func FormatOf(path string) (Format, bool, error) {
	encrypted := strings.EqualFold(filepath.Ext(path), EncryptedExt)
	if encrypted {
		path = strings.TrimSuffix(path, filepath.Ext(path))
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, encrypted, nil
	case ".toml":
		return FormatTOML, encrypted, nil
	}
	return "", encrypted, fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(path))
}

// Load reads a snapshot file, decrypting it first when its name ends in .age.
func Load(path string, opts Options) (*service.Snapshot, error) {
	format, encrypted, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if encrypted {
		if len(opts.Identities) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoIdentity, path)
		}
		if r, err = age.Decrypt(f, opts.Identities...); err != nil {
			return nil, fmt.Errorf("failed to decrypt snapshot: %w", err)
		}
	}

	snapshot, err := Decode(r, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snapshot, nil
}

// Decode reads a snapshot in the given format.
func Decode(r io.Reader, format Format) (*service.Snapshot, error) {
	var f file

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %w", common.ErrMalformedInput, err)
		}
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&f)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrMalformedInput, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, common.Malformed("unknown keys %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	return f.toSnapshot()
}

func (f *file) toSnapshot() (*service.Snapshot, error) {
	snapshot := &service.Snapshot{}

	for i, a := range f.Accounts {
		if strings.TrimSpace(a.Name) == "" {
			return nil, common.Malformed("account %d has no name", i)
		}

		group := model.AccountGroup{
			ID:                    a.ID,
			ComputedStartValue:    a.ComputedStartValue,
			Account:               a.Name,
			NetWorthSubcategoryID: a.NetWorthSubcategoryID,
			PreviousYearTaxRelief: a.PreviousYearTaxRelief,
		}

		for _, in := range a.Income {
			group.Income = append(group.Income, model.Income{
				StartDate:      in.StartDate.Time,
				EndDate:        in.EndDate.Time,
				TaxCode:        in.TaxCode,
				Salary:         in.Salary,
				PensionContrib: in.PensionContrib,
				StudentLoan:    in.StudentLoan,
			})
		}

		for _, past := range a.PastIncome {
			entry := model.PastIncome{Date: past.Date.Time, Gross: past.Gross}
			for _, d := range past.Deductions {
				entry.Deductions = append(entry.Deductions, model.Deduction{Name: d.Name, Value: d.Value})
			}
			group.PastIncome = append(group.PastIncome, entry)
		}

		for _, v := range a.Values {
			if v.Month < 0 || v.Month > 11 {
				return nil, common.Malformed("account %q value %d: month %d out of range", a.Name, v.ID, v.Month)
			}
			group.Values = append(group.Values, model.Value{
				Value:               v.Value,
				Formula:             v.Formula,
				TransferToAccountID: v.TransferTo,
				Name:                v.Name,
				ID:                  v.ID,
				Year:                v.Year,
				Month:               v.Month,
			})
		}

		for _, card := range a.CreditCards {
			cc := model.CreditCard{NetWorthSubcategoryID: card.SubcategoryID}
			for _, p := range card.Payments {
				cc.Payments = append(cc.Payments, model.CreditCardPayment{Year: p.Year, Month: p.Month, Value: p.Value})
			}
			group.CreditCards = append(group.CreditCards, cc)
		}

		for _, c := range a.ComputedValues {
			group.ComputedValues = append(group.ComputedValues, model.ComputedValue{
				Key:        c.Key,
				Name:       c.Name,
				Month:      c.Month,
				Value:      c.Value,
				IsVerified: c.IsVerified,
				IsTransfer: c.IsTransfer,
			})
		}

		snapshot.State.Accounts = append(snapshot.State.Accounts, group)
	}

	for _, year := range f.TaxParameters {
		params := model.TaxParameters{Year: year.Year}
		for _, r := range year.Rates {
			params.Rates = append(params.Rates, model.NamedValue{Name: r.Name, Value: r.Value})
		}
		for _, t := range year.Thresholds {
			params.Thresholds = append(params.Thresholds, model.NamedValue{Name: t.Name, Value: t.Value})
		}
		snapshot.State.Parameters = append(snapshot.State.Parameters, params)
	}

	for _, entry := range f.NetWorth {
		nw := model.NetWorthEntry{ID: entry.ID, Date: entry.Date.Time}
		for _, v := range entry.Values {
			nw.Values = append(nw.Values, model.NetWorthValue{Subcategory: v.Subcategory, Simple: v.Simple})
		}
		snapshot.NetWorth = append(snapshot.NetWorth, nw)
	}

	for _, card := range f.CreditCards {
		snapshot.CreditCards = append(snapshot.CreditCards, model.CreditCardSubcategory{ID: card.ID, Name: card.Name})
	}

	return snapshot, nil
}

// Encode writes snapshot in the given format.
func Encode(w io.Writer, snapshot *service.Snapshot, format Format) error {
	f := fromSnapshot(snapshot)

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(f); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// Save writes snapshot to path in the format its extension names, encrypting
// it to recipients when the name ends in .age.
func Save(path string, snapshot *service.Snapshot, recipients ...age.Recipient) error {
	format, encrypted, err := FormatOf(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, snapshot, format); err != nil {
		return err
	}

	data := buf.Bytes()
	if encrypted {
		if len(recipients) == 0 {
			return fmt.Errorf("%w: %s", ErrNoIdentity, path)
		}
		var out bytes.Buffer
		w, err := age.Encrypt(&out, recipients...)
		if err != nil {
			return fmt.Errorf("failed to encrypt snapshot: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to encrypt snapshot: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("failed to encrypt snapshot: %w", err)
		}
		data = out.Bytes()
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func fromSnapshot(snapshot *service.Snapshot) *file {
	f := &file{}

	for _, group := range snapshot.State.Accounts {
		a := account{
			ID:                    group.ID,
			ComputedStartValue:    group.ComputedStartValue,
			Name:                  group.Account,
			NetWorthSubcategoryID: group.NetWorthSubcategoryID,
			PreviousYearTaxRelief: group.PreviousYearTaxRelief,
		}
		for _, in := range group.Income {
			a.Income = append(a.Income, income{
				StartDate:      Date{in.StartDate},
				EndDate:        Date{in.EndDate},
				TaxCode:        in.TaxCode,
				Salary:         in.Salary,
				PensionContrib: in.PensionContrib,
				StudentLoan:    in.StudentLoan,
			})
		}
		for _, past := range group.PastIncome {
			p := pastIncome{Date: Date{past.Date}, Gross: past.Gross}
			for _, d := range past.Deductions {
				p.Deductions = append(p.Deductions, deduction{Name: d.Name, Value: d.Value})
			}
			a.PastIncome = append(a.PastIncome, p)
		}
		for _, v := range group.Values {
			a.Values = append(a.Values, value{
				Value:      v.Value,
				Formula:    v.Formula,
				TransferTo: v.TransferToAccountID,
				Name:       v.Name,
				ID:         v.ID,
				Year:       v.Year,
				Month:      v.Month,
			})
		}
		for _, card := range group.CreditCards {
			cc := creditCard{SubcategoryID: card.NetWorthSubcategoryID}
			for _, p := range card.Payments {
				cc.Payments = append(cc.Payments, payment{Year: p.Year, Month: p.Month, Value: p.Value})
			}
			a.CreditCards = append(a.CreditCards, cc)
		}
		for _, c := range group.ComputedValues {
			a.ComputedValues = append(a.ComputedValues, computedValue{
				Key:        c.Key,
				Name:       c.Name,
				Month:      c.Month,
				Value:      c.Value,
				IsVerified: c.IsVerified,
				IsTransfer: c.IsTransfer,
			})
		}
		f.Accounts = append(f.Accounts, a)
	}

	for _, params := range snapshot.State.Parameters {
		year := taxYear{Year: params.Year}
		for _, r := range params.Rates {
			year.Rates = append(year.Rates, namedValue{Name: r.Name, Value: r.Value})
		}
		for _, t := range params.Thresholds {
			year.Thresholds = append(year.Thresholds, namedValue{Name: t.Name, Value: t.Value})
		}
		f.TaxParameters = append(f.TaxParameters, year)
	}

	for _, entry := range snapshot.NetWorth {
		nw := netWorth{ID: entry.ID, Date: Date{entry.Date}}
		for _, v := range entry.Values {
			nw.Values = append(nw.Values, netWorthValue{Subcategory: v.Subcategory, Simple: v.Simple})
		}
		f.NetWorth = append(f.NetWorth, nw)
	}

	for _, card := range snapshot.CreditCards {
		f.CreditCards = append(f.CreditCards, creditCardSC{ID: card.ID, Name: card.Name})
	}

	return f
}
