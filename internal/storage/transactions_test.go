package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/pocketwatch/internal/common"
	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/service"
	"github.com/shopspring/decimal"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustTxn(t *testing.T, cfg model.TransactionConfig) *model.Transaction {
	t.Helper()
	txn, err := model.NewTransaction(cfg)
	if err != nil {
		t.Fatalf("Failed to build transaction: %v", err)
	}
	return txn
}

func amt(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("Invalid decimal %q: %v", s, err)
	}
	return d
}

func saveTxn(t *testing.T, store *SQLiteStorage, cfg model.TransactionConfig) *model.Transaction {
	t.Helper()
	txn := mustTxn(t, cfg)
	if err := store.SaveTransaction(context.Background(), txn); err != nil {
		t.Fatalf("Failed to save transaction: %v", err)
	}
	return txn
}

func TestSaveTransactionDuplicate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	txn := saveTxn(t, store, model.TransactionConfig{
		Amount:   amt(t, "10.00"),
		Category: "Food",
		Type:     model.TypeExpense,
	})

	err := store.SaveTransaction(ctx, txn)
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("Expected ErrDuplicateEntry, got %v", err)
	}
}

func TestGetTransactionRoundTrip(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	end := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	saved := saveTxn(t, store, model.TransactionConfig{
		Amount:             amt(t, "123.45"),
		Category:           "rent",
		Description:        "January rent",
		Type:               model.TypeExpense,
		Date:               time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
		Account:            "checking",
		Tags:               []string{"housing", "fixed"},
		Merchant:           "Acme Properties",
		PaymentMethod:      "transfer",
		Notes:              "paid early",
		IsRecurring:        true,
		RecurringFrequency: model.FrequencyMonthly,
		RecurringEndDate:   &end,
	})

	got, err := store.GetTransaction(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Failed to get transaction: %v", err)
	}

	if !got.Amount.Equal(amt(t, "123.45")) {
		t.Errorf("Amount = %s, want 123.45", got.Amount)
	}
	if got.Category != "Rent" {
		t.Errorf("Category = %q, want %q", got.Category, "Rent")
	}
	if !got.Date.Equal(saved.Date) {
		t.Errorf("Date = %v, want %v", got.Date, saved.Date)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "housing" {
		t.Errorf("Tags = %v, want [housing fixed]", got.Tags)
	}
	if got.Merchant != "Acme Properties" {
		t.Errorf("Merchant = %q", got.Merchant)
	}
	if got.RecurringEndDate == nil || !got.RecurringEndDate.Equal(end) {
		t.Errorf("RecurringEndDate = %v, want %v", got.RecurringEndDate, end)
	}
}

func TestGetTransactionPrefix(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	saveTxn(t, store, model.TransactionConfig{
		ID:       "aaaa1111-0000-0000-0000-000000000000",
		Amount:   amt(t, "10"),
		Category: "Food",
		Type:     model.TypeExpense,
	})
	saveTxn(t, store, model.TransactionConfig{
		ID:       "aaaa2222-0000-0000-0000-000000000000",
		Amount:   amt(t, "20"),
		Category: "Food",
		Type:     model.TypeExpense,
	})

	t.Run("unambiguous prefix resolves", func(t *testing.T) {
		got, err := store.GetTransaction(ctx, "aaaa1")
		if err != nil {
			t.Fatalf("Failed prefix lookup: %v", err)
		}
		if got.ID != "aaaa1111-0000-0000-0000-000000000000" {
			t.Errorf("Resolved wrong record: %s", got.ID)
		}
	})

	t.Run("ambiguous prefix errors", func(t *testing.T) {
		_, err := store.GetTransaction(ctx, "aaaa")
		if !errors.Is(err, common.ErrAmbiguousID) {
			t.Errorf("Expected ErrAmbiguousID, got %v", err)
		}
	})

	t.Run("missing id errors", func(t *testing.T) {
		_, err := store.GetTransaction(ctx, "zzzz")
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestListTransactionsFilters(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "50"), Category: "Food", Type: model.TypeExpense, Date: jan,
		Tags: []string{"work"},
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "200"), Category: "Rent", Type: model.TypeExpense, Date: feb,
		Account: "checking",
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "3000"), Category: "Salary", Type: model.TypeIncome, Date: feb,
	})

	t.Run("by type", func(t *testing.T) {
		got, err := store.ListTransactions(ctx, service.TransactionFilter{Type: model.TypeIncome})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(got) != 1 || got[0].Category != "Salary" {
			t.Errorf("Got %d records, want the single income", len(got))
		}
	})

	t.Run("by category is case insensitive", func(t *testing.T) {
		got, err := store.ListTransactions(ctx, service.TransactionFilter{Category: "food"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("Got %d records, want 1", len(got))
		}
	})

	t.Run("by date range", func(t *testing.T) {
		end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
		got, err := store.ListTransactions(ctx, service.TransactionFilter{EndDate: &end})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(got) != 1 || got[0].Category != "Food" {
			t.Errorf("Got %v, want only the January expense", got)
		}
	})

	t.Run("by amount range", func(t *testing.T) {
		minAmount := amt(t, "100")
		maxAmount := amt(t, "500")
		got, err := store.ListTransactions(ctx, service.TransactionFilter{
			MinAmount: &minAmount,
			MaxAmount: &maxAmount,
		})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(got) != 1 || got[0].Category != "Rent" {
			t.Errorf("Got %v, want only the rent payment", got)
		}
	})

	t.Run("by tag", func(t *testing.T) {
		got, err := store.ListTransactions(ctx, service.TransactionFilter{Tags: []string{"work", "absent"}})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(got) != 1 || got[0].Category != "Food" {
			t.Errorf("Got %v, want only the tagged expense", got)
		}
	})

	t.Run("inverted date range is rejected", func(t *testing.T) {
		start := feb
		end := jan
		_, err := store.ListTransactions(ctx, service.TransactionFilter{StartDate: &start, EndDate: &end})
		if err == nil {
			t.Error("Expected error for inverted range")
		}
	})
}

func TestListTransactionsSorting(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "9.99"), Category: "A", Type: model.TypeExpense, Date: base,
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "100.00"), Category: "B", Type: model.TypeExpense, Date: base.AddDate(0, 0, 1),
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "25.50"), Category: "C", Type: model.TypeExpense, Date: base.AddDate(0, 0, 2),
	})

	t.Run("amount ascending sorts numerically", func(t *testing.T) {
		got, err := store.ListTransactions(ctx, service.TransactionFilter{
			SortBy: service.SortByAmount,
			Order:  service.OrderAsc,
		})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		want := []string{"9.99", "25.5", "100"}
		for i, w := range want {
			if !got[i].Amount.Equal(amt(t, w)) {
				t.Errorf("Position %d = %s, want %s", i, got[i].Amount, w)
			}
		}
	})

	t.Run("unknown sort falls back to date descending", func(t *testing.T) {
		got, err := store.ListTransactions(ctx, service.TransactionFilter{SortBy: "bogus"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if got[0].Category != "C" || got[2].Category != "A" {
			t.Errorf("Unexpected order: %v, %v, %v", got[0].Category, got[1].Category, got[2].Category)
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		got, err := store.ListTransactions(ctx, service.TransactionFilter{
			SortBy: service.SortByDate,
			Order:  service.OrderAsc,
			Limit:  2,
			Offset: 1,
		})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(got) != 2 || got[0].Category != "B" {
			t.Errorf("Got %d records starting at %v", len(got), got[0].Category)
		}
	})
}

func TestSearchTransactions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "12"), Category: "Coffee", Type: model.TypeExpense,
		Description: "morning espresso",
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "30"), Category: "Food", Type: model.TypeExpense,
		Merchant: "Espresso House",
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "40"), Category: "Transport", Type: model.TypeExpense,
		Notes: "taxi to airport",
	})

	got, err := store.SearchTransactions(ctx, "espresso", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Got %d matches, want 2 (description and merchant)", len(got))
	}

	got, err = store.SearchTransactions(ctx, "airport", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 || got[0].Category != "Transport" {
		t.Errorf("Notes search failed: %v", got)
	}
}

func TestUpdateTransaction(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	txn := saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "20"), Category: "Food", Type: model.TypeExpense,
	})

	newAmount := amt(t, "25.75")
	newCategory := "dining out"
	updated, err := store.UpdateTransaction(ctx, txn.ID, model.TransactionUpdate{
		Amount:   &newAmount,
		Category: &newCategory,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !updated {
		t.Fatal("Expected update to report success")
	}

	got, err := store.GetTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.Amount.Equal(newAmount) {
		t.Errorf("Amount = %s, want %s", got.Amount, newAmount)
	}
	if got.Category != "Dining Out" {
		t.Errorf("Category = %q, want normalized %q", got.Category, "Dining Out")
	}

	t.Run("missing id reports false without error", func(t *testing.T) {
		updated, err := store.UpdateTransaction(ctx, "missing", model.TransactionUpdate{Amount: &newAmount})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated {
			t.Error("Expected no update for a missing ID")
		}
	})
}

func TestDeleteTransaction(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	txn := saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "20"), Category: "Food", Type: model.TypeExpense,
	})

	deleted, err := store.DeleteTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted {
		t.Error("Expected delete to report success")
	}

	deleted, err = store.DeleteTransaction(ctx, txn.ID)
	if err != nil {
		t.Fatalf("Second delete failed: %v", err)
	}
	if deleted {
		t.Error("Expected second delete to report false")
	}
}

func TestBeginTxRollback(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}

	txn := mustTxn(t, model.TransactionConfig{
		Amount: amt(t, "10"), Category: "Food", Type: model.TypeExpense,
	})
	if err := tx.SaveTransaction(ctx, txn); err != nil {
		t.Fatalf("SaveTransaction in tx failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	_, err = store.GetTransaction(ctx, txn.ID)
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected rolled-back record to be gone, got %v", err)
	}
}
