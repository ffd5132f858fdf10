// Package testutil provides shared test fixtures for pocketwatch, built on
// an in-memory SQLite database with proper isolation and cleanup.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/service"
	"github.com/Veraticus/pocketwatch/internal/storage"
	"github.com/shopspring/decimal"
)

// TestDB wraps an in-memory store for tests.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database that is closed when the
// test finishes.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// MustSaveTransaction builds and persists a transaction or fails the test.
func (db *TestDB) MustSaveTransaction(cfg model.TransactionConfig) *model.Transaction {
	db.t.Helper()
	txn, err := model.NewTransaction(cfg)
	if err != nil {
		db.t.Fatalf("failed to build transaction: %v", err)
	}
	if err := db.Storage.SaveTransaction(context.Background(), txn); err != nil {
		db.t.Fatalf("failed to save transaction: %v", err)
	}
	return txn
}

// MustSaveExpense persists a simple expense transaction or fails the test.
func (db *TestDB) MustSaveExpense(amount, category string, date time.Time) *model.Transaction {
	db.t.Helper()
	return db.MustSaveTransaction(model.TransactionConfig{
		Amount:   Amount(db.t, amount),
		Category: category,
		Type:     model.TypeExpense,
		Date:     date,
	})
}

// MustSaveIncome persists a simple income transaction or fails the test.
func (db *TestDB) MustSaveIncome(amount, category string, date time.Time) *model.Transaction {
	db.t.Helper()
	return db.MustSaveTransaction(model.TransactionConfig{
		Amount:   Amount(db.t, amount),
		Category: category,
		Type:     model.TypeIncome,
		Date:     date,
	})
}

// Amount parses a decimal literal or fails the test.
func Amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}
