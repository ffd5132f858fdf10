package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/service"
	"github.com/Veraticus/pocketwatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRoundTrip(t *testing.T) {
	src := testutil.SetupTestDB(t)
	ctx := context.Background()

	date := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	src.MustSaveExpense("45.50", "Groceries", date)
	src.MustSaveIncome("2000", "Salary", date)

	path := filepath.Join(t.TempDir(), "ledger.csv")
	exporter := NewExporter(src.Storage)

	var lastCurrent, lastTotal int
	count, err := exporter.ExportCSV(ctx, path, service.TransactionFilter{}, func(current, total int) {
		lastCurrent, lastTotal = current, total
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, lastCurrent)
	assert.Equal(t, 2, lastTotal)

	// Import into a fresh database.
	dst := testutil.SetupTestDB(t)
	importer := NewExporter(dst.Storage)
	imported, err := importer.ImportCSV(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	txns, err := dst.Storage.ListTransactions(ctx, service.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 2)

	stats, err := dst.Storage.SummaryStats(ctx, nil, nil, "")
	require.NoError(t, err)
	assert.True(t, stats.TotalExpenses.Equal(testutil.Amount(t, "45.50")))
	assert.True(t, stats.TotalIncome.Equal(testutil.Amount(t, "2000")))
}

func TestImportCSVRejectsMalformedFile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	exporter := NewExporter(db.Storage)

	t.Run("bad header", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.csv")
		require.NoError(t, os.WriteFile(path, []byte("foo,bar\n1,2\n"), 0o600))

		_, err := exporter.ImportCSV(ctx, path, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "header")
	})

	t.Run("bad row aborts the whole import", func(t *testing.T) {
		content := strings.Join([]string{
			"id,date,type,amount,category,description",
			",2026-01-01,expense,10.00,Food,ok",
			",2026-01-02,expense,not-a-number,Food,bad",
			"",
		}, "\n")
		path := filepath.Join(t.TempDir(), "partial.csv")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		_, err := exporter.ImportCSV(ctx, path, nil)
		require.Error(t, err)

		txns, err := db.Storage.ListTransactions(ctx, service.TransactionFilter{})
		require.NoError(t, err)
		assert.Empty(t, txns, "nothing from the failed import lands")
	})
}

func TestJSONRoundTrip(t *testing.T) {
	src := testutil.SetupTestDB(t)
	ctx := context.Background()

	src.MustSaveExpense("99.99", "Food", model.Today())

	budget, err := model.NewBudget(model.BudgetConfig{
		Name: "Food", Category: "Food", Amount: testutil.Amount(t, "500"),
	})
	require.NoError(t, err)
	require.NoError(t, src.Storage.SaveBudget(ctx, budget))

	goal, err := model.NewGoal(model.GoalConfig{
		Name:         "Fund",
		TargetAmount: testutil.Amount(t, "1000"),
		TargetDate:   model.Today().AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	require.NoError(t, goal.AddContribution(testutil.Amount(t, "250"), "", time.Time{}))
	require.NoError(t, src.Storage.SaveGoal(ctx, goal))

	path := filepath.Join(t.TempDir(), "snapshot.json")
	count, err := NewExporter(src.Storage).ExportJSON(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	dst := testutil.SetupTestDB(t)
	imported, err := NewExporter(dst.Storage).ImportJSON(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, imported)

	gotGoal, err := dst.Storage.GetGoal(ctx, goal.ID)
	require.NoError(t, err)
	assert.True(t, gotGoal.CurrentAmount.Equal(testutil.Amount(t, "250")))
	require.Len(t, gotGoal.Contributions, 1)

	gotBudget, err := dst.Storage.GetBudget(ctx, budget.ID)
	require.NoError(t, err)
	assert.True(t, gotBudget.Amount.Equal(testutil.Amount(t, "500")))
}

func TestBackup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	db.MustSaveExpense("10", "Food", model.Today())

	dir := filepath.Join(t.TempDir(), "backups")
	path, err := NewExporter(db.Storage).Backup(ctx, dir)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filepath.Base(path), "pocketwatch-backup-"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
