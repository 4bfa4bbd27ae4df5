// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

// Snapshot is everything the projection engine needs besides the date and year.
type Snapshot struct {
	State       model.State
	NetWorth    []model.NetWorthEntry
	CreditCards []model.CreditCardSubcategory
}

// Revision records one saved snapshot.
type Revision struct {
	SavedAt         time.Time
	ID              string
	Accounts        int
	NetWorthEntries int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) (*Revision, error)
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
	LatestRevision(ctx context.Context) (*Revision, error)
	AccountNames(ctx context.Context) ([]string, error)

	SaveNetWorth(ctx context.Context, entries []model.NetWorthEntry) error
	LoadNetWorth(ctx context.Context) ([]model.NetWorthEntry, error)

	AddCreditCardPayments(ctx context.Context, accountName string, subcategoryID int, payments []model.CreditCardPayment) error

	Close() error
}

// PlanningReport is a computed financial year ready to be exported.
type PlanningReport struct {
	GeneratedAt time.Time
	Months      []model.PlanningData
	Overview    []model.OverviewRow
	Year        int
}

// ReportWriter exports a computed financial year to an external destination.
type ReportWriter interface {
	Write(ctx context.Context, report *PlanningReport) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
