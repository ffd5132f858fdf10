package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/service"
	"github.com/shopspring/decimal"
)

// Aggregation scans amounts back out as decimal text and sums in Go:
// summing a REAL cast would reintroduce the float drift the text encoding
// exists to avoid.

// SummaryStats computes ledger totals over an optional date range and
// account. The savings rate is zero when there is no income.
func (s *SQLiteStorage) SummaryStats(ctx context.Context, start, end *time.Time, account string) (*service.SummaryStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}

	var where []string
	var args []any
	if start != nil {
		where = append(where, "date >= ?")
		args = append(args, model.DateOnly(*start))
	}
	if end != nil {
		where = append(where, "date <= ?")
		args = append(args, model.DateOnly(*end))
	}
	if account != "" {
		where = append(where, "account = ?")
		args = append(args, account)
	}

	query := `SELECT transaction_type, amount FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &service.SummaryStats{}
	var haveIncome, haveExpense bool

	for rows.Next() {
		var txnType, amountStr string
		if err := rows.Scan(&txnType, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", amountStr, err)
		}

		if model.TransactionType(txnType) == model.TypeIncome {
			stats.TotalIncome = stats.TotalIncome.Add(amount)
			stats.IncomeCount++
			if !haveIncome || amount.LessThan(stats.MinIncome) {
				stats.MinIncome = amount
			}
			if !haveIncome || amount.GreaterThan(stats.MaxIncome) {
				stats.MaxIncome = amount
			}
			haveIncome = true
		} else {
			stats.TotalExpenses = stats.TotalExpenses.Add(amount)
			stats.ExpenseCount++
			if !haveExpense || amount.LessThan(stats.MinExpense) {
				stats.MinExpense = amount
			}
			if !haveExpense || amount.GreaterThan(stats.MaxExpense) {
				stats.MaxExpense = amount
			}
			haveExpense = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summary rows: %w", err)
	}

	if stats.IncomeCount > 0 {
		stats.AverageIncome = stats.TotalIncome.Div(decimal.NewFromInt(int64(stats.IncomeCount)))
	}
	if stats.ExpenseCount > 0 {
		stats.AverageExpense = stats.TotalExpenses.Div(decimal.NewFromInt(int64(stats.ExpenseCount)))
	}

	stats.TotalCount = stats.IncomeCount + stats.ExpenseCount
	stats.NetBalance = stats.TotalIncome.Sub(stats.TotalExpenses)
	if stats.TotalIncome.IsPositive() {
		rate, _ := stats.NetBalance.Div(stats.TotalIncome).Mul(decimal.NewFromInt(100)).Float64()
		stats.SavingsRate = rate
	}

	return stats, nil
}

// CategoryBreakdown sums amounts per category, optionally scoped to a
// transaction type and date range, sorted by total descending.
func (s *SQLiteStorage) CategoryBreakdown(ctx context.Context, txnType model.TransactionType, start, end *time.Time) ([]service.CategoryTotal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}

	var where []string
	var args []any
	if txnType != "" {
		where = append(where, "transaction_type = ?")
		args = append(args, string(txnType))
	}
	if start != nil {
		where = append(where, "date >= ?")
		args = append(args, model.DateOnly(*start))
	}
	if end != nil {
		where = append(where, "date <= ?")
		args = append(args, model.DateOnly(*end))
	}

	query := `SELECT category, amount FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category breakdown: %w", err)
	}
	defer func() { _ = rows.Close() }()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var category, amountStr string
		if err := rows.Scan(&category, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan breakdown row: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", amountStr, err)
		}
		totals[category] = totals[category].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate breakdown rows: %w", err)
	}

	breakdown := make([]service.CategoryTotal, 0, len(totals))
	for category, total := range totals {
		breakdown = append(breakdown, service.CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if !breakdown[i].Total.Equal(breakdown[j].Total) {
			return breakdown[i].Total.GreaterThan(breakdown[j].Total)
		}
		return breakdown[i].Category < breakdown[j].Category
	})

	return breakdown, nil
}

// MonthlyTrends groups ledger activity by calendar month over the trailing
// N months, most recent first.
func (s *SQLiteStorage) MonthlyTrends(ctx context.Context, months int) ([]service.MonthlyTrend, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if months <= 0 {
		months = 12
	}

	now := model.Today()
	// First day of the earliest month in the window.
	windowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, transaction_type, amount FROM transactions WHERE date >= ?
	`, windowStart)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly trends: %w", err)
	}
	defer func() { _ = rows.Close() }()

	buckets := make(map[string]*service.MonthlyTrend)
	for rows.Next() {
		var date time.Time
		var txnType, amountStr string
		if err := rows.Scan(&date, &txnType, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan trend row: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", amountStr, err)
		}

		month := date.Format("2006-01")
		bucket, ok := buckets[month]
		if !ok {
			bucket = &service.MonthlyTrend{Month: month}
			buckets[month] = bucket
		}

		if model.TransactionType(txnType) == model.TypeIncome {
			bucket.Income = bucket.Income.Add(amount)
			bucket.IncomeCount++
		} else {
			bucket.Expenses = bucket.Expenses.Add(amount)
			bucket.ExpenseCount++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trend rows: %w", err)
	}

	trends := make([]service.MonthlyTrend, 0, len(buckets))
	for _, bucket := range buckets {
		bucket.NetBalance = bucket.Income.Sub(bucket.Expenses)
		trends = append(trends, *bucket)
	}
	sort.Slice(trends, func(i, j int) bool {
		return trends[i].Month > trends[j].Month
	})

	return trends, nil
}
