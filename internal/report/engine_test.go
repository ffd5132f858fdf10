package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryReport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	date := model.Today()
	db.MustSaveIncome("1000", "Salary", date)
	db.MustSaveExpense("500", "Rent", date)

	out, err := NewEngine(db.Storage).Summary(ctx, nil, nil, "")
	require.NoError(t, err)

	assert.Contains(t, out, "1000.00")
	assert.Contains(t, out, "500.00")
	assert.Contains(t, out, "50.0%")
}

func TestCategoryChart(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	db.MustSaveExpense("300", "Rent", model.Today())
	db.MustSaveExpense("100", "Food", model.Today())

	engine := NewEngine(db.Storage)
	out, err := engine.CategoryChart(ctx, model.TypeExpense, nil, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "Rent")
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "25.0%")
	// Largest category first.
	assert.Less(t, strings.Index(out, "Rent"), strings.Index(out, "Food"))

	t.Run("empty ledger", func(t *testing.T) {
		empty := testutil.SetupTestDB(t)
		out, err := NewEngine(empty.Storage).CategoryChart(ctx, model.TypeExpense, nil, nil)
		require.NoError(t, err)
		assert.Contains(t, out, "No transactions")
	})
}

func TestTrendsReport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	db.MustSaveIncome("2000", "Salary", model.Today())
	db.MustSaveExpense("750", "Rent", model.Today())

	out, err := NewEngine(db.Storage).Trends(ctx, 6)
	require.NoError(t, err)

	assert.Contains(t, out, model.Today().Format("2006-01"))
	assert.Contains(t, out, "2000.00")
	assert.Contains(t, out, "1250.00")
}

func TestBudgetStatusesReport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := NewEngine(db.Storage)

	budget, err := model.NewBudget(model.BudgetConfig{
		Name: "Food", Category: "Food", Amount: testutil.Amount(t, "500"),
	})
	require.NoError(t, err)
	require.NoError(t, budget.AddExpense(testutil.Amount(t, "490")))

	out, err := engine.BudgetStatuses([]model.BudgetStatus{budget.Status(time.Now().UTC())})
	require.NoError(t, err)

	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "490.00")
	assert.Contains(t, out, model.BudgetStatusWarning)

	out, err = engine.BudgetStatuses(nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No active budgets")
}

func TestGoalStatusesReport(t *testing.T) {
	db := testutil.SetupTestDB(t)
	engine := NewEngine(db.Storage)

	goal, err := model.NewGoal(model.GoalConfig{
		Name:         "Vacation",
		TargetAmount: testutil.Amount(t, "1000"),
		TargetDate:   model.Today().AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	require.NoError(t, goal.AddContribution(testutil.Amount(t, "600"), "", time.Time{}))

	out, err := engine.GoalStatuses([]model.GoalStatus{goal.Status(time.Now().UTC())})
	require.NoError(t, err)

	assert.Contains(t, out, "Vacation")
	assert.Contains(t, out, "600.00")
	assert.Contains(t, out, "60.0%")
	assert.Contains(t, out, "75% Complete", "next milestone is shown")
}
