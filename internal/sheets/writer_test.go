package sheets

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/service"
)

// fakeAPI records every call and serves a single in-memory spreadsheet.
type fakeAPI struct {
	getErr      error
	updateErrs  map[string][]error
	existing    *sheets.Spreadsheet
	created     *sheets.Spreadsheet
	updates     map[string][][]any
	clears      []string
	batches     []*sheets.BatchUpdateSpreadsheetRequest
	nextSheetID int64
	mu          sync.Mutex
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		updates:     make(map[string][][]any),
		updateErrs:  make(map[string][]error),
		nextSheetID: 100,
	}
}

func (f *fakeAPI) Get(_ context.Context, _ string) (*sheets.Spreadsheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.existing, nil
}

func (f *fakeAPI) Create(_ context.Context, spreadsheet *sheets.Spreadsheet) (*sheets.Spreadsheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sheet := range spreadsheet.Sheets {
		sheet.Properties.SheetId = f.nextSheetID
		f.nextSheetID++
	}
	spreadsheet.SpreadsheetId = "created-id"
	f.created = spreadsheet
	return spreadsheet, nil
}

func (f *fakeAPI) BatchUpdate(_ context.Context, _ string, req *sheets.BatchUpdateSpreadsheetRequest) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, req)

	resp := &sheets.BatchUpdateSpreadsheetResponse{}
	for _, r := range req.Requests {
		reply := &sheets.Response{}
		if r.AddSheet != nil {
			props := *r.AddSheet.Properties
			props.SheetId = f.nextSheetID
			f.nextSheetID++
			reply.AddSheet = &sheets.AddSheetResponse{Properties: &props}
		}
		resp.Replies = append(resp.Replies, reply)
	}
	return resp, nil
}

func (f *fakeAPI) Clear(_ context.Context, _ string, rng string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears = append(f.clears, rng)
	return nil
}

func (f *fakeAPI) Update(_ context.Context, _ string, rng string, values [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if errs := f.updateErrs[rng]; len(errs) > 0 {
		f.updateErrs[rng] = errs[1:]
		return errs[0]
	}
	f.updates[rng] = values
	return nil
}

func ptr(v int64) *int64 { return &v }

func testReport() *service.PlanningReport {
	month := func(m, year int, end1, end2 *int64) model.PlanningData {
		return model.PlanningData{
			PlanningMonth: model.PlanningMonth{
				Date:  time.Date(year, time.Month(m+2), 0, 23, 59, 59, 0, time.UTC),
				Year:  2024,
				Month: m,
			},
			Accounts: []model.MonthByAccount{
				{
					AccountGroup: model.AccountGroup{Account: "Current"},
					EndValue:     model.AccountValue{ComputedValue: end1},
					Transactions: []model.AccountTransaction{
						{Name: "Salary", ComputedValue: ptr(500000), IsVerified: true},
					},
					CreditCards: []model.AccountCreditCardPayment{
						{Name: "Amex", Value: ptr(-12000)},
					},
				},
				{
					AccountGroup: model.AccountGroup{Account: "Savings"},
					EndValue:     model.AccountValue{ComputedValue: end2},
				},
			},
		}
	}

	return &service.PlanningReport{
		Year: 2024,
		Months: []model.PlanningData{
			month(3, 2024, ptr(100000), ptr(250050)),
			month(4, 2024, ptr(150000), nil),
		},
		Overview: []model.OverviewRow{
			{Name: "Gross income", Value: 1000000, IsBold: true},
			{Name: "Taxes", Value: -200000},
		},
	}
}

func testConfig() Config {
	config := DefaultConfig()
	config.ServiceAccountPath = "/path/to/key.json"
	config.RetryDelay = time.Millisecond
	return config
}

func TestBuildTabs(t *testing.T) {
	tabs := buildTabs(testReport())
	require.Len(t, tabs, 3)

	overview := tabs[0]
	assert.Equal(t, "Overview 2024-25", overview.title)
	assert.Equal(t, [][]any{
		{"Financial year", "2024-25"},
		{"Gross income", 10000.0},
		{"Taxes", -2000.0},
	}, overview.values)
	assert.Equal(t, []int{0, 1}, overview.bold)

	balances := tabs[1]
	assert.Equal(t, "Balances 2024-25", balances.title)
	assert.Equal(t, [][]any{
		{"Account", "Apr 2024", "May 2024"},
		{"Current", 1000.0, 1500.0},
		{"Savings", 2500.5, ""},
		{"Total", 3500.5, 1500.0},
	}, balances.values)
	assert.Equal(t, []int{0, 3}, balances.bold)
	assert.Equal(t, 1, balances.moneyFrom)
	assert.Equal(t, 3, balances.moneyTo)

	ledger := tabs[2]
	require.Len(t, ledger.values, 5)
	assert.Equal(t, []any{"Apr 2024", "Current", "Salary", 5000.0, true, false}, ledger.values[1])
	assert.Equal(t, []any{"Apr 2024", "Current", "Amex", -120.0, false, false}, ledger.values[2])
	assert.Equal(t, 6, ledger.width())
}

func TestQuoteTitle(t *testing.T) {
	assert.Equal(t, "'Overview 2024-25'", quoteTitle("Overview 2024-25"))
	assert.Equal(t, "'Bob''s plan'", quoteTitle("Bob's plan"))
}

func TestWriteCreatesSpreadsheet(t *testing.T) {
	api := newFakeAPI()
	writer := newWriter(api, testConfig(), nil)

	require.NoError(t, writer.Write(context.Background(), testReport()))

	require.NotNil(t, api.created)
	assert.Equal(t, "Financial Plan", api.created.Properties.Title)
	require.Len(t, api.created.Sheets, 3)
	assert.Len(t, api.clears, 3)
	assert.Contains(t, api.updates, "'Overview 2024-25'!A1")
	assert.Contains(t, api.updates, "'Balances 2024-25'!A1")
	assert.Contains(t, api.updates, "'Ledger 2024-25'!A1")

	// One formatting batch addressing the created sheet IDs.
	require.Len(t, api.batches, 1)
	first := api.batches[0].Requests[0].RepeatCell
	require.NotNil(t, first)
	assert.Equal(t, int64(100), first.Range.SheetId)

	// A second export reuses the spreadsheet.
	api.existing = api.created
	require.NoError(t, writer.Write(context.Background(), testReport()))
	assert.Equal(t, "created-id", writer.config.SpreadsheetID)
}

func TestWriteAddsMissingTabs(t *testing.T) {
	api := newFakeAPI()
	api.existing = &sheets.Spreadsheet{
		SpreadsheetId: "existing",
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: "Overview 2024-25", SheetId: 7}},
		},
	}
	config := testConfig()
	config.SpreadsheetID = "existing"
	config.EnableFormatting = false
	writer := newWriter(api, config, nil)

	require.NoError(t, writer.Write(context.Background(), testReport()))

	require.Len(t, api.batches, 1)
	var added []string
	for _, r := range api.batches[0].Requests {
		require.NotNil(t, r.AddSheet)
		added = append(added, r.AddSheet.Properties.Title)
	}
	assert.Equal(t, []string{"Balances 2024-25", "Ledger 2024-25"}, added)
	assert.Len(t, api.updates, 3)
}

func TestWriteRetriesServerErrors(t *testing.T) {
	api := newFakeAPI()
	api.updateErrs["'Ledger 2024-25'!A1"] = []error{
		classifyError(&googleapi.Error{Code: http.StatusServiceUnavailable}),
	}
	writer := newWriter(api, testConfig(), nil)

	require.NoError(t, writer.Write(context.Background(), testReport()))
	assert.Contains(t, api.updates, "'Ledger 2024-25'!A1")
}

func TestWriteFailsOnClientErrors(t *testing.T) {
	api := newFakeAPI()
	api.updateErrs["'Balances 2024-25'!A1"] = []error{
		classifyError(&googleapi.Error{Code: http.StatusForbidden, Message: "forbidden"}),
	}
	writer := newWriter(api, testConfig(), nil)

	err := writer.Write(context.Background(), testReport())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Balances 2024-25"))
}

func TestWriteRejectsEmptyReport(t *testing.T) {
	writer := newWriter(newFakeAPI(), testConfig(), nil)

	require.ErrorIs(t, writer.Write(context.Background(), &service.PlanningReport{Year: 2024}), common.ErrMalformedInput)
	require.ErrorIs(t, writer.Write(context.Background(), nil), common.ErrMalformedInput)
}

func TestWriteSpreadsheetUnavailable(t *testing.T) {
	api := newFakeAPI()
	api.getErr = classifyError(&googleapi.Error{Code: http.StatusNotFound})
	config := testConfig()
	config.SpreadsheetID = "missing"
	writer := newWriter(api, config, nil)

	err := writer.Write(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to access spreadsheet missing")
}

func TestClassifyError(t *testing.T) {
	assert.NoError(t, classifyError(nil))

	plain := errors.New("network down")
	assert.Equal(t, plain, classifyError(plain))

	rateLimited := classifyError(&googleapi.Error{Code: http.StatusTooManyRequests})
	assert.ErrorIs(t, rateLimited, common.ErrRateLimit)

	var retryable *common.RetryableError
	require.ErrorAs(t, classifyError(&googleapi.Error{Code: http.StatusBadGateway}), &retryable)
	assert.True(t, retryable.Retryable)

	require.ErrorAs(t, classifyError(&googleapi.Error{Code: http.StatusBadRequest}), &retryable)
	assert.False(t, retryable.Retryable)
}

func TestMockWriter(t *testing.T) {
	mock := NewMockWriter()
	report := testReport()

	require.NoError(t, mock.Write(context.Background(), report))
	mock.SetWriteError(errors.New("boom"))
	require.EqualError(t, mock.Write(context.Background(), report), "boom")

	calls := mock.GetWriteCalls()
	require.Len(t, calls, 2)
	assert.Same(t, report, mock.LastReport)
	assert.NoError(t, calls[0].Error)
	assert.Error(t, calls[1].Error)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, 2500.5, money(250050))
	assert.Equal(t, -0.01, money(-1))
	assert.Equal(t, 0.0, money(0))
	assert.Equal(t, "", optionalMoney(nil))
	v := int64(-12345)
	assert.Equal(t, -123.45, optionalMoney(&v))
}
