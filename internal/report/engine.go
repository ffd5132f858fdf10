// Package report renders ledger analytics, budget status, and goal progress
// into terminal-friendly text.
package report

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/pocketwatch/internal/cli"
	"github.com/Veraticus/pocketwatch/internal/model"
	"github.com/Veraticus/pocketwatch/internal/service"
	"github.com/shopspring/decimal"
)

const chartBarWidth = 40

// Engine builds reports from the persistence layer.
type Engine struct {
	storage service.Storage
}

// NewEngine creates a report engine.
func NewEngine(storage service.Storage) *Engine {
	return &Engine{storage: storage}
}

// Summary renders income, expense, and savings totals over an optional date
// range and account.
func (e *Engine) Summary(ctx context.Context, start, end *time.Time, account string) (string, error) {
	stats, err := e.storage.SummaryStats(ctx, start, end, account)
	if err != nil {
		return "", fmt.Errorf("failed to compute summary: %w", err)
	}

	var b strings.Builder
	b.WriteString(cli.FormatTitle("Financial Summary"))
	b.WriteString("\n")
	if start != nil || end != nil {
		b.WriteString(cli.SubtleStyle.Render(rangeLabel(start, end)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Total Income:\t%s\t(%d transactions)\n",
		cli.FormatAmount("$"+stats.TotalIncome.StringFixed(2), false), stats.IncomeCount)
	fmt.Fprintf(w, "Total Expenses:\t%s\t(%d transactions)\n",
		cli.FormatAmount("$"+stats.TotalExpenses.StringFixed(2), true), stats.ExpenseCount)
	fmt.Fprintf(w, "Net Balance:\t%s\t\n",
		cli.FormatAmount("$"+stats.NetBalance.StringFixed(2), stats.NetBalance.IsNegative()))
	fmt.Fprintf(w, "Savings Rate:\t%.1f%%\t\n", stats.SavingsRate)
	if stats.IncomeCount > 0 {
		fmt.Fprintf(w, "Average Income:\t$%s\t(min $%s, max $%s)\n",
			stats.AverageIncome.StringFixed(2), stats.MinIncome.StringFixed(2), stats.MaxIncome.StringFixed(2))
	}
	if stats.ExpenseCount > 0 {
		fmt.Fprintf(w, "Average Expense:\t$%s\t(min $%s, max $%s)\n",
			stats.AverageExpense.StringFixed(2), stats.MinExpense.StringFixed(2), stats.MaxExpense.StringFixed(2))
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to render summary: %w", err)
	}
	return b.String(), nil
}

// CategoryChart renders a horizontal bar chart of spending (or income) per
// category, largest first.
func (e *Engine) CategoryChart(ctx context.Context, txnType model.TransactionType, start, end *time.Time) (string, error) {
	breakdown, err := e.storage.CategoryBreakdown(ctx, txnType, start, end)
	if err != nil {
		return "", fmt.Errorf("failed to compute breakdown: %w", err)
	}
	if len(breakdown) == 0 {
		return cli.FormatInfo("No transactions to chart."), nil
	}

	title := "Spending by Category"
	if txnType == model.TypeIncome {
		title = "Income by Category"
	}

	maxTotal := breakdown[0].Total
	grand := decimal.Zero
	maxName := 0
	for _, row := range breakdown {
		grand = grand.Add(row.Total)
		if len(row.Category) > maxName {
			maxName = len(row.Category)
		}
	}

	var b strings.Builder
	b.WriteString(cli.StyleTitle(cli.ChartIcon + " " + title))
	b.WriteString("\n\n")
	for _, row := range breakdown {
		bar := barFor(row.Total, maxTotal)
		pct := 0.0
		if grand.IsPositive() {
			pct, _ = row.Total.Div(grand).Mul(decimal.NewFromInt(100)).Float64()
		}
		fmt.Fprintf(&b, "%-*s %s $%s (%.1f%%)\n",
			maxName, row.Category, bar, row.Total.StringFixed(2), pct)
	}
	return b.String(), nil
}

// Trends renders a month-by-month table of income, expenses, and net
// balance, most recent first.
func (e *Engine) Trends(ctx context.Context, months int) (string, error) {
	trends, err := e.storage.MonthlyTrends(ctx, months)
	if err != nil {
		return "", fmt.Errorf("failed to compute trends: %w", err)
	}
	if len(trends) == 0 {
		return cli.FormatInfo("No transactions in the trend window."), nil
	}

	var b strings.Builder
	b.WriteString(cli.StyleTitle(cli.ChartIcon + " Monthly Trends"))
	b.WriteString("\n\n")

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MONTH\tINCOME\tEXPENSES\tNET\tCOUNT")
	for _, trend := range trends {
		fmt.Fprintf(w, "%s\t$%s\t$%s\t%s\t%d\n",
			trend.Month,
			trend.Income.StringFixed(2),
			trend.Expenses.StringFixed(2),
			cli.FormatAmount("$"+trend.NetBalance.StringFixed(2), trend.NetBalance.IsNegative()),
			trend.IncomeCount+trend.ExpenseCount)
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to render trends: %w", err)
	}
	return b.String(), nil
}

// BudgetStatuses renders the derived status table for the given budgets.
func (e *Engine) BudgetStatuses(statuses []model.BudgetStatus) (string, error) {
	if len(statuses) == 0 {
		return cli.FormatInfo("No active budgets."), nil
	}

	var b strings.Builder
	b.WriteString(cli.StyleTitle(cli.MoneyIcon + " Budget Status"))
	b.WriteString("\n\n")

	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY\tSPENT\tBUDGET\tUSED\tDAYS LEFT\tSTATUS")
	for _, status := range statuses {
		fmt.Fprintf(w, "%s\t%s\t$%s\t$%s\t%.1f%%\t%d\t%s\n",
			status.Name,
			status.Category,
			status.Spent.StringFixed(2),
			status.Amount.StringFixed(2),
			status.PercentageSpent,
			status.DaysRemaining,
			styleBudgetStatus(status.StatusText))
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to render budget status: %w", err)
	}
	return b.String(), nil
}

// GoalStatuses renders the derived progress table for the given goals,
// each with a progress bar.
func (e *Engine) GoalStatuses(statuses []model.GoalStatus) (string, error) {
	if len(statuses) == 0 {
		return cli.FormatInfo("No active goals."), nil
	}

	var b strings.Builder
	b.WriteString(cli.StyleTitle(cli.TargetIcon + " Goal Progress"))
	b.WriteString("\n\n")

	for _, status := range statuses {
		fmt.Fprintf(&b, "%s  %s\n", cli.BoldStyle.Render(status.Name), styleGoalStatus(status.StatusText))
		fmt.Fprintf(&b, "  %s $%s / $%s (%.1f%%)\n",
			progressBar(status.ProgressPercentage),
			status.CurrentAmount.StringFixed(2),
			status.TargetAmount.StringFixed(2),
			status.ProgressPercentage)
		if status.NextMilestone != nil {
			fmt.Fprintf(&b, "  Next milestone: %s ($%s)\n",
				status.NextMilestone.Name, status.NextMilestone.Amount.StringFixed(2))
		}
		if !status.IsCompleted {
			fmt.Fprintf(&b, "  %d days left, $%s/day needed\n",
				status.DaysRemaining, status.DailySavingsNeeded.StringFixed(2))
		}
		if status.ProjectedCompletion != nil {
			fmt.Fprintf(&b, "  Projected completion: %s\n",
				status.ProjectedCompletion.Format(time.DateOnly))
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func barFor(value, max decimal.Decimal) string {
	if !max.IsPositive() {
		return ""
	}
	ratio, _ := value.Div(max).Float64()
	filled := int(ratio * chartBarWidth)
	if filled < 1 && value.IsPositive() {
		filled = 1
	}
	return strings.Repeat("█", filled)
}

func progressBar(pct float64) string {
	const width = 20
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * width)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func styleBudgetStatus(status string) string {
	switch status {
	case model.BudgetStatusOver:
		return cli.StyleError(status)
	case model.BudgetStatusWarning:
		return cli.StyleWarning(status)
	default:
		return cli.StyleSuccess(status)
	}
}

func styleGoalStatus(status string) string {
	switch status {
	case model.GoalStatusCompleted:
		return cli.StyleSuccess(status)
	case model.GoalStatusBehindSchedule:
		return cli.StyleWarning(status)
	default:
		return cli.StyleInfo(status)
	}
}

func rangeLabel(start, end *time.Time) string {
	switch {
	case start != nil && end != nil:
		return fmt.Sprintf("%s to %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	case start != nil:
		return "from " + start.Format(time.DateOnly)
	case end != nil:
		return "through " + end.Format(time.DateOnly)
	default:
		return ""
	}
}
