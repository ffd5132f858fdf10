package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBudget(t *testing.T, cfg BudgetConfig) *Budget {
	t.Helper()
	b, err := NewBudget(cfg)
	require.NoError(t, err)
	return b
}

func TestNewBudget(t *testing.T) {
	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := NewBudget(BudgetConfig{Name: "Food", Category: "Food", Amount: decimal.Zero})
		require.Error(t, err)
		_, err = NewBudget(BudgetConfig{Name: "Food", Category: "Food", Amount: decimal.NewFromInt(-5)})
		require.Error(t, err)
	})

	t.Run("rejects threshold outside range", func(t *testing.T) {
		_, err := NewBudget(BudgetConfig{
			Name:           "Food",
			Category:       "Food",
			Amount:         decimal.NewFromInt(100),
			AlertThreshold: 120,
		})
		require.Error(t, err)
	})

	t.Run("derives end date from period", func(t *testing.T) {
		start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
		b := mustBudget(t, BudgetConfig{
			Name:      "Food",
			Category:  "food",
			Amount:    decimal.NewFromInt(500),
			Period:    PeriodQuarterly,
			StartDate: start,
		})
		assert.Equal(t, start.AddDate(0, 0, 90), b.EndDate, "quarterly is a fixed 90 days")
		assert.Equal(t, "Food", b.Category)
		assert.InDelta(t, 80.0, b.AlertThreshold, 0.0001)
		assert.True(t, b.AlertEnabled)
	})
}

func TestPeriodEnd(t *testing.T) {
	start := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, start.AddDate(0, 0, 7), PeriodEnd(start, PeriodWeekly))
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), PeriodEnd(start, PeriodMonthly),
		"calendar month arithmetic normalizes Jan 31 + 1 month")
	assert.Equal(t, start.AddDate(0, 0, 90), PeriodEnd(start, PeriodQuarterly))
	assert.Equal(t, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC), PeriodEnd(start, PeriodYearly))
}

func TestBudgetStatusProgression(t *testing.T) {
	b := mustBudget(t, BudgetConfig{
		Name:     "Groceries",
		Category: "Groceries",
		Amount:   decimal.NewFromInt(500),
	})
	assert.Equal(t, BudgetStatusGood, b.StatusText())

	// 450 of 500 crosses the default 80% threshold.
	require.NoError(t, b.AddExpense(decimal.NewFromInt(450)))
	assert.Equal(t, BudgetStatusWarning, b.StatusText())
	assert.True(t, b.AlertThresholdReached())
	assert.False(t, b.IsOverBudget())

	// Another 60 pushes past the cap.
	require.NoError(t, b.AddExpense(decimal.NewFromInt(60)))
	assert.Equal(t, BudgetStatusOver, b.StatusText())
	assert.True(t, b.IsOverBudget())
	assert.True(t, b.RemainingAmount().Equal(decimal.NewFromInt(-10)))
}

func TestBudgetAddExpenseRejectsNonPositive(t *testing.T) {
	b := mustBudget(t, BudgetConfig{Name: "Fun", Category: "Fun", Amount: decimal.NewFromInt(100)})
	require.Error(t, b.AddExpense(decimal.Zero))
	require.Error(t, b.AddExpense(decimal.NewFromInt(-20)))
}

func TestBudgetSpentPercentageZeroCap(t *testing.T) {
	b := &Budget{Amount: decimal.Zero, CurrentSpent: decimal.NewFromInt(10)}
	assert.InDelta(t, 0.0, b.SpentPercentage(), 0.0001, "zero cap never divides")
}

func TestBudgetResetPeriod(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("without rollover", func(t *testing.T) {
		b := mustBudget(t, BudgetConfig{
			Name:      "Food",
			Category:  "Food",
			Amount:    decimal.NewFromInt(500),
			StartDate: start,
		})
		require.NoError(t, b.AddExpense(decimal.NewFromInt(200)))

		asOf := b.EndDate.AddDate(0, 0, 1)
		require.True(t, b.ShouldReset(asOf))
		b.ResetPeriod(asOf)

		assert.True(t, b.CurrentSpent.IsZero())
		assert.True(t, b.Amount.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, DateOnly(asOf), b.StartDate)
		assert.Equal(t, PeriodEnd(b.StartDate, b.Period), b.EndDate)
		assert.Nil(t, b.LastAlertSent)
	})

	t.Run("with rollover", func(t *testing.T) {
		b := mustBudget(t, BudgetConfig{
			Name:           "Food",
			Category:       "Food",
			Amount:         decimal.NewFromInt(500),
			StartDate:      start,
			RolloverUnused: true,
		})
		require.NoError(t, b.AddExpense(decimal.NewFromInt(350)))

		b.ResetPeriod(b.EndDate.AddDate(0, 0, 1))

		assert.True(t, b.Amount.Equal(decimal.NewFromInt(650)), "unused 150 rolls into the next cap")
		assert.True(t, b.CurrentSpent.IsZero())
	})

	t.Run("overspent budgets do not roll negative", func(t *testing.T) {
		b := mustBudget(t, BudgetConfig{
			Name:           "Food",
			Category:       "Food",
			Amount:         decimal.NewFromInt(500),
			StartDate:      start,
			RolloverUnused: true,
		})
		require.NoError(t, b.AddExpense(decimal.NewFromInt(600)))

		b.ResetPeriod(b.EndDate.AddDate(0, 0, 1))

		assert.True(t, b.Amount.Equal(decimal.NewFromInt(500)))
	})
}

func TestBudgetDaysRemaining(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	b := mustBudget(t, BudgetConfig{
		Name:      "Food",
		Category:  "Food",
		Amount:    decimal.NewFromInt(300),
		StartDate: start,
	})

	assert.Equal(t, 21, b.DaysRemaining(start.AddDate(0, 0, 10)))
	assert.Equal(t, 0, b.DaysRemaining(b.EndDate.AddDate(0, 0, 5)), "clamped after the period ends")

	daily := b.DailyBudgetRemaining(start.AddDate(0, 0, 10))
	assert.True(t, daily.Equal(decimal.NewFromInt(300).Div(decimal.NewFromInt(21))))
	assert.True(t, b.DailyBudgetRemaining(b.EndDate.AddDate(0, 0, 5)).IsZero())
}

func TestBudgetStatusSnapshot(t *testing.T) {
	b := mustBudget(t, BudgetConfig{
		Name:     "Transport",
		Category: "Transport",
		Amount:   decimal.NewFromInt(200),
	})
	require.NoError(t, b.AddExpense(decimal.NewFromInt(120)))

	status := b.Status(b.StartDate.AddDate(0, 0, 5))
	assert.Equal(t, "Transport", status.Category)
	assert.True(t, status.Spent.Equal(decimal.NewFromInt(120)))
	assert.True(t, status.Remaining.Equal(decimal.NewFromInt(80)))
	assert.InDelta(t, 60.0, status.PercentageSpent, 0.0001)
	assert.Equal(t, BudgetStatusOnTrack, status.StatusText)
}
