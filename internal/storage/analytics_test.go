package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/pocketwatch/internal/model"
)

func TestSummaryStats(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	date := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "1000"), Category: "Salary", Type: model.TypeIncome, Date: date,
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "300"), Category: "Rent", Type: model.TypeExpense, Date: date,
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "200"), Category: "Food", Type: model.TypeExpense, Date: date,
	})

	stats, err := store.SummaryStats(ctx, nil, nil, "")
	if err != nil {
		t.Fatalf("SummaryStats failed: %v", err)
	}

	if !stats.TotalIncome.Equal(amt(t, "1000")) {
		t.Errorf("TotalIncome = %s, want 1000", stats.TotalIncome)
	}
	if !stats.TotalExpenses.Equal(amt(t, "500")) {
		t.Errorf("TotalExpenses = %s, want 500", stats.TotalExpenses)
	}
	if !stats.NetBalance.Equal(amt(t, "500")) {
		t.Errorf("NetBalance = %s, want 500", stats.NetBalance)
	}
	if stats.SavingsRate != 50.0 {
		t.Errorf("SavingsRate = %v, want 50", stats.SavingsRate)
	}
	if stats.TotalCount != 3 || stats.IncomeCount != 1 || stats.ExpenseCount != 2 {
		t.Errorf("Counts = %d/%d/%d", stats.TotalCount, stats.IncomeCount, stats.ExpenseCount)
	}
	if !stats.AverageExpense.Equal(amt(t, "250")) {
		t.Errorf("AverageExpense = %s, want 250", stats.AverageExpense)
	}
	if !stats.MinExpense.Equal(amt(t, "200")) || !stats.MaxExpense.Equal(amt(t, "300")) {
		t.Errorf("Expense min/max = %s/%s", stats.MinExpense, stats.MaxExpense)
	}
}

func TestSummaryStatsNoIncome(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "100"), Category: "Food", Type: model.TypeExpense,
	})

	stats, err := store.SummaryStats(ctx, nil, nil, "")
	if err != nil {
		t.Fatalf("SummaryStats failed: %v", err)
	}
	if stats.SavingsRate != 0 {
		t.Errorf("SavingsRate = %v, want 0 with no income", stats.SavingsRate)
	}
}

func TestSummaryStatsDateRange(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "100"), Category: "Food", Type: model.TypeExpense,
		Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "900"), Category: "Food", Type: model.TypeExpense,
		Date: time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC),
	})

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	stats, err := store.SummaryStats(ctx, &start, &end, "")
	if err != nil {
		t.Fatalf("SummaryStats failed: %v", err)
	}
	if !stats.TotalExpenses.Equal(amt(t, "100")) {
		t.Errorf("TotalExpenses = %s, want only the January expense", stats.TotalExpenses)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "100.10"), Category: "Food", Type: model.TypeExpense,
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "49.90"), Category: "food", Type: model.TypeExpense,
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "300"), Category: "Rent", Type: model.TypeExpense,
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "5000"), Category: "Salary", Type: model.TypeIncome,
	})

	breakdown, err := store.CategoryBreakdown(ctx, model.TypeExpense, nil, nil)
	if err != nil {
		t.Fatalf("CategoryBreakdown failed: %v", err)
	}

	if len(breakdown) != 2 {
		t.Fatalf("Got %d categories, want 2", len(breakdown))
	}
	if breakdown[0].Category != "Rent" || !breakdown[0].Total.Equal(amt(t, "300")) {
		t.Errorf("First row = %+v, want Rent 300", breakdown[0])
	}
	if breakdown[1].Category != "Food" || !breakdown[1].Total.Equal(amt(t, "150")) {
		t.Errorf("Second row = %+v, want Food 150 (case-folded)", breakdown[1])
	}
}

func TestMonthlyTrends(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	now := model.Today()
	thisMonth := time.Date(now.Year(), now.Month(), 5, 0, 0, 0, 0, time.UTC)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "2000"), Category: "Salary", Type: model.TypeIncome, Date: thisMonth,
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "800"), Category: "Rent", Type: model.TypeExpense, Date: thisMonth,
	})
	saveTxn(t, store, model.TransactionConfig{
		Amount: amt(t, "500"), Category: "Rent", Type: model.TypeExpense, Date: lastMonth,
	})

	trends, err := store.MonthlyTrends(ctx, 3)
	if err != nil {
		t.Fatalf("MonthlyTrends failed: %v", err)
	}
	if len(trends) != 2 {
		t.Fatalf("Got %d months, want 2", len(trends))
	}

	// Most recent first.
	if trends[0].Month != thisMonth.Format("2006-01") {
		t.Errorf("First month = %s, want %s", trends[0].Month, thisMonth.Format("2006-01"))
	}
	if !trends[0].NetBalance.Equal(amt(t, "1200")) {
		t.Errorf("NetBalance = %s, want 1200", trends[0].NetBalance)
	}
	if trends[1].IncomeCount != 0 || trends[1].ExpenseCount != 1 {
		t.Errorf("Last month counts = %d/%d", trends[1].IncomeCount, trends[1].ExpenseCount)
	}
}
