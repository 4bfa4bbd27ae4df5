package planning

import (
	"fmt"
	"log/slog"
	"reflect"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/Veraticus/the-plan-must-flow/internal/common"
	"github.com/Veraticus/the-plan-must-flow/internal/model"
)

// DefaultCacheSize is the number of projections kept by a Cache.
const DefaultCacheSize = 16

// cacheKey is everything a projection depends on. Today only matters to the
// month, so it is reduced to a month index.
type cacheKey struct {
	State         model.State
	NetWorth      []model.NetWorthEntry
	CreditCards   []model.CreditCardSubcategory
	FinancialYear int
	StartMonth    int
	TodayIndex    int
}

type cacheEntry struct {
	table    []model.PlanningData
	overview []model.OverviewRow
	key      cacheKey
}

// Cache memoizes projections on a hash of their full input. It is safe for
// concurrent use. Inputs must not be modified after they are passed in, and
// returned tables are shared between callers and must be treated as read-only.
type Cache struct {
	projector *Projector
	entries   *lru.Cache[uint64, *cacheEntry]
}

// NewCache creates a cache holding up to size projections.
func NewCache(size int, opts Options) (*Cache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: cache size %d must be positive", common.ErrInvalidConfig, size)
	}

	projector, err := NewProjector(opts)
	if err != nil {
		return nil, err
	}

	entries, err := lru.New[uint64, *cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create projection cache: %w", err)
	}

	return &Cache{projector: projector, entries: entries}, nil
}

// Project returns the projected table for in, computing it on a miss.
func (c *Cache) Project(in Input) ([]model.PlanningData, error) {
	entry, err := c.lookup(in)
	if err != nil {
		return nil, err
	}
	return entry.table, nil
}

// Overview returns the overview rows for in, computing the projection on a miss.
func (c *Cache) Overview(in Input) ([]model.OverviewRow, error) {
	entry, err := c.lookup(in)
	if err != nil {
		return nil, err
	}
	return entry.overview, nil
}

// Len returns the number of cached projections.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) lookup(in Input) (*cacheEntry, error) {
	key := cacheKey{
		State:         in.State,
		NetWorth:      in.NetWorth,
		CreditCards:   in.CreditCards,
		FinancialYear: in.FinancialYear,
		StartMonth:    c.projector.opts.StartMonth,
		TodayIndex:    monthIndex(in.Today),
	}

	hash, err := hashstructure.Hash(key, hashstructure.FormatV2, &hashstructure.HashOptions{
		UseStringer: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to hash projection input: %w", err)
	}

	// The hash does not tell a nil amount from zero, so hits are confirmed.
	if entry, ok := c.entries.Get(hash); ok && reflect.DeepEqual(entry.key, key) {
		slog.Debug("projection cache hit", "year", in.FinancialYear, "hash", hash)
		return entry, nil
	}

	table, err := c.projector.Project(in)
	if err != nil {
		return nil, err
	}

	entry := &cacheEntry{
		key:      key,
		table:    table,
		overview: Overview(table),
	}
	c.entries.Add(hash, entry)
	slog.Debug("projection cache miss", "year", in.FinancialYear, "hash", hash)

	return entry, nil
}
