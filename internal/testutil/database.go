// Package testutil provides shared fixtures and database setup for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/the-plan-must-flow/internal/service"
	"github.com/Veraticus/the-plan-must-flow/internal/storage"
)

// TestDB is a migrated snapshot store living in the test's temp directory.
type TestDB struct {
	Storage  *storage.SQLiteStorage
	Revision *service.Revision
	Path     string
}

// SetupTestDB creates a test database seeded with snap, which may be nil.
// The database is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.Snapshot())
func SetupTestDB(t *testing.T, snap *service.Snapshot) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Snapshot: snap})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup func(context.Context, service.Storage) error
	Snapshot    *service.Snapshot
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "plan.db")

	store, err := storage.Open(ctx, path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	db := &TestDB{Storage: store, Path: path}

	if opts.Snapshot != nil {
		if db.Revision, err = store.SaveSnapshot(ctx, opts.Snapshot); err != nil {
			t.Fatalf("failed to seed snapshot: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return db
}
