package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/config"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
	"github.com/Veraticus/the-plan-must-flow/internal/planning"
	"github.com/Veraticus/the-plan-must-flow/internal/service"
	"github.com/Veraticus/the-plan-must-flow/internal/storage"
)

// initStorage opens the configured snapshot store, creating and migrating it as needed.
func initStorage(ctx context.Context, cfg *config.Planning) (*storage.SQLiteStorage, error) {
	if err := cfg.EnsureDatabaseDir(); err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	slog.Debug("opened snapshot store", "path", store.Path())
	return store, nil
}

// addPeriodFlags registers --year and --today on a projection command.
func addPeriodFlags(cmd *cobra.Command) {
	cmd.Flags().Int("year", 0, "financial year to project, by its starting calendar year (default: the current one)")
	cmd.Flags().String("today", "", "date treated as today, YYYY-MM-DD (default: now)")
}

// period resolves the reference date and financial year of a projection command.
func period(cmd *cobra.Command, startMonth int, now time.Time) (time.Time, int, error) {
	today := now
	if s, _ := cmd.Flags().GetString("today"); s != "" {
		parsed, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return time.Time{}, 0, common.NewUserError(fmt.Sprintf("invalid --today %q, expected YYYY-MM-DD", s), err)
		}
		today = parsed
	}

	year, _ := cmd.Flags().GetInt("year")
	if year == 0 {
		year = planning.FinancialYearOf(today, startMonth)
	}

	return today, year, nil
}

// projection is one computed financial year.
type projection struct {
	table    []model.PlanningData
	overview []model.OverviewRow
	year     int
}

// planner projects years of the stored snapshot through a shared cache.
type planner struct {
	cache    *planning.Cache
	snapshot *service.Snapshot
	today    time.Time
	year     int
}

func newPlanner(cmd *cobra.Command, store service.Storage, cfg *config.Planning) (*planner, error) {
	today, year, err := period(cmd, cfg.StartMonth, time.Now())
	if err != nil {
		return nil, err
	}

	snapshot, err := store.LoadSnapshot(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if len(snapshot.State.Accounts) == 0 {
		return nil, common.NewUserError("no accounts stored yet, run 'plan import <snapshot>' first", common.ErrNotFound)
	}

	cache, err := planning.NewCache(cfg.CacheSize, cfg.ProjectorOptions())
	if err != nil {
		return nil, err
	}

	return &planner{cache: cache, snapshot: snapshot, today: today, year: year}, nil
}

func (p *planner) project(year int) (*projection, error) {
	in := planning.Input{
		Today:         p.today,
		State:         p.snapshot.State,
		NetWorth:      p.snapshot.NetWorth,
		CreditCards:   p.snapshot.CreditCards,
		FinancialYear: year,
	}

	table, err := p.cache.Project(in)
	if err != nil {
		return nil, fmt.Errorf("failed to project %s: %w", planning.YearLabel(year), err)
	}
	overview, err := p.cache.Overview(in)
	if err != nil {
		return nil, err
	}

	return &projection{table: table, overview: overview, year: year}, nil
}

func loadPlanningConfig() (*config.Planning, error) {
	return config.LoadPlanningConfig(viper.GetViper())
}
