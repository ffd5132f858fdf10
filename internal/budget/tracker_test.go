package budget

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/pocketwatch/internal/common"
	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTracker(t *testing.T) (*Tracker, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return NewTracker(db.Storage, nil), db
}

func TestTrackerCreate(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	b, err := tracker.Create(ctx, model.BudgetConfig{
		Name:     "Groceries",
		Category: "groceries",
		Amount:   testutil.Amount(t, "400"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", b.Category)

	got, err := tracker.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(testutil.Amount(t, "400")))

	_, err = tracker.Create(ctx, model.BudgetConfig{
		Name:     "Bad",
		Category: "Bad",
		Amount:   testutil.Amount(t, "-10"),
	})
	require.Error(t, err)
}

func TestTrackerUpdate(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	b, err := tracker.Create(ctx, model.BudgetConfig{
		Name:     "Groceries",
		Category: "Groceries",
		Amount:   testutil.Amount(t, "400"),
	})
	require.NoError(t, err)

	name := "Weekly Groceries"
	amount := testutil.Amount(t, "450")
	threshold := 90.0
	updated, err := tracker.Update(ctx, b.ID, model.BudgetUpdate{
		Name:           &name,
		Amount:         &amount,
		AlertThreshold: &threshold,
	})
	require.NoError(t, err)
	assert.Equal(t, "Weekly Groceries", updated.Name)
	assert.True(t, updated.Amount.Equal(amount))

	got, err := tracker.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weekly Groceries", got.Name)
	assert.InDelta(t, 90.0, got.AlertThreshold, 0.0001)

	t.Run("rejects non-positive amount", func(t *testing.T) {
		bad := testutil.Amount(t, "0")
		_, err := tracker.Update(ctx, b.ID, model.BudgetUpdate{Amount: &bad})
		require.Error(t, err)
		assert.True(t, common.IsValidation(err))
	})

	t.Run("deactivation hides the budget from active lists", func(t *testing.T) {
		inactive := false
		_, err := tracker.Update(ctx, b.ID, model.BudgetUpdate{IsActive: &inactive})
		require.NoError(t, err)

		active, err := tracker.List(ctx, true)
		require.NoError(t, err)
		assert.Empty(t, active)
	})
}

func TestRecordExpense(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	_, err := tracker.Create(ctx, model.BudgetConfig{
		Name:     "Food",
		Category: "Food",
		Amount:   testutil.Amount(t, "500"),
	})
	require.NoError(t, err)

	// Category matching is case insensitive via normalization.
	b, err := tracker.RecordExpense(ctx, "food", testutil.Amount(t, "120.50"))
	require.NoError(t, err)
	assert.True(t, b.CurrentSpent.Equal(testutil.Amount(t, "120.50")))

	got, err := tracker.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentSpent.Equal(testutil.Amount(t, "120.50")), "spend persisted")

	t.Run("no budget for category", func(t *testing.T) {
		_, err := tracker.RecordExpense(ctx, "Unbudgeted", testutil.Amount(t, "10"))
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestRecordExpenseAlertMarker(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	created, err := tracker.Create(ctx, model.BudgetConfig{
		Name:     "Food",
		Category: "Food",
		Amount:   testutil.Amount(t, "100"),
	})
	require.NoError(t, err)
	require.Nil(t, created.LastAlertSent)

	_, err = tracker.RecordExpense(ctx, "Food", testutil.Amount(t, "85"))
	require.NoError(t, err)

	got, err := tracker.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastAlertSent, "crossing the threshold records the alert")
}

func TestRefreshSpent(t *testing.T) {
	tracker, db := setupTracker(t)
	ctx := context.Background()

	start := model.Today()
	b, err := tracker.Create(ctx, model.BudgetConfig{
		Name:      "Food",
		Category:  "Food",
		Amount:    testutil.Amount(t, "500"),
		StartDate: start,
	})
	require.NoError(t, err)

	// Two in-period expenses, one income, and one out-of-period expense.
	db.MustSaveExpense("100", "Food", start)
	db.MustSaveExpense("50.25", "food", start.AddDate(0, 0, 2))
	db.MustSaveIncome("2000", "Salary", start)
	db.MustSaveExpense("999", "Food", start.AddDate(0, 0, -40))
	db.MustSaveExpense("75", "Transport", start)

	refreshed, err := tracker.RefreshSpent(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.CurrentSpent.Equal(testutil.Amount(t, "150.25")),
		"only in-period expenses in the budget's category count, got %s", refreshed.CurrentSpent)
}

func TestProcessRollovers(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b, err := tracker.Create(ctx, model.BudgetConfig{
		Name:           "Food",
		Category:       "Food",
		Amount:         testutil.Amount(t, "500"),
		StartDate:      start,
		RolloverUnused: true,
	})
	require.NoError(t, err)
	_, err = tracker.RecordExpense(ctx, "Food", testutil.Amount(t, "300"))
	require.NoError(t, err)

	fresh, err := tracker.Create(ctx, model.BudgetConfig{
		Name:     "Current",
		Category: "Transport",
		Amount:   testutil.Amount(t, "100"),
	})
	require.NoError(t, err)

	reset, err := tracker.ProcessRollovers(ctx, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, reset, 1, "only the elapsed budget resets")
	assert.Equal(t, b.ID, reset[0].ID)
	assert.True(t, reset[0].CurrentSpent.IsZero())
	assert.True(t, reset[0].Amount.Equal(testutil.Amount(t, "700")), "unused 200 rolled over")
	assert.True(t, reset[0].EndDate.After(time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)))

	got, err := tracker.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentSpent.IsZero())
}

func TestTrackerStatusAll(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	_, err := tracker.Create(ctx, model.BudgetConfig{
		Name: "A", Category: "A", Amount: testutil.Amount(t, "100"),
	})
	require.NoError(t, err)
	_, err = tracker.Create(ctx, model.BudgetConfig{
		Name: "B", Category: "B", Amount: testutil.Amount(t, "200"),
	})
	require.NoError(t, err)

	statuses, err := tracker.StatusAll(ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, 2)
	for _, status := range statuses {
		assert.Equal(t, model.BudgetStatusGood, status.StatusText)
	}
}

func TestTrackerDelete(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	b, err := tracker.Create(ctx, model.BudgetConfig{
		Name: "Food", Category: "Food", Amount: testutil.Amount(t, "100"),
	})
	require.NoError(t, err)

	require.NoError(t, tracker.Delete(ctx, b.ID))
	_, err = tracker.Get(ctx, b.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
